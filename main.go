package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mkasajim/realtime-gmail-monitor/config"
	"github.com/mkasajim/realtime-gmail-monitor/server"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: gmail-monitor <command>")
		fmt.Println("Commands:")
		fmt.Println("  monitor   Start monitoring the configured accounts")
		fmt.Println("  accounts  List the configured accounts")
		os.Exit(1)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}
	if cfg == nil {
		log.Fatalf("config is empty")
	}

	switch os.Args[1] {
	case "monitor":

		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("Gmail monitor starting up...")

		server, err := server.NewServer(cfg)
		if err != nil {
			log.Fatalf("Server setup failed: %v", err)
		}

		err = server.Run()
		if err != nil {
			log.Fatalf("Server startup failed: %v", err)
		}

		log.Println("Shutdown complete")

	case "accounts":

		accounts, err := config.LoadAccounts(cfg.AppConfig.AccountsFile)
		if err != nil {
			log.Fatalf("Failed to load accounts: %v", err)
		}
		for _, account := range accounts {
			fmt.Printf("%s\t%s\n", account.Name, account.Email)
		}

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		fmt.Println("Usage: gmail-monitor <command>")
		fmt.Println("Commands:")
		fmt.Println("  monitor   Start monitoring the configured accounts")
		fmt.Println("  accounts  List the configured accounts")
		os.Exit(1)
	}
}

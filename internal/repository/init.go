package repository

import (
	"github.com/mkasajim/realtime-gmail-monitor/interfaces"
)

type Repositories struct {
	CursorRepository interfaces.CursorRepository
}

func InitRepositories() *Repositories {
	return &Repositories{
		CursorRepository: NewCursorRepository(),
	}
}

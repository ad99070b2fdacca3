package gmail

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	monitor_errors "github.com/mkasajim/realtime-gmail-monitor/errors"
)

// newTokenSource builds an auto-refreshing token source from the shared
// client-secret file and the account's token file. Interactive token
// acquisition is the account-setup tooling's job; a missing or unusable token
// is a per-account setup error here.
func newTokenSource(ctx context.Context, credentialsFile, tokenFile string) (oauth2.TokenSource, error) {
	secret, err := os.ReadFile(credentialsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(monitor_errors.ErrCredentialsMissing, credentialsFile)
		}
		return nil, errors.Wrap(err, "failed to read credentials file")
	}

	oauthConfig, err := google.ConfigFromJSON(secret, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse credentials file")
	}

	tokenData, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read token file")
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(tokenData, token); err != nil {
		return nil, errors.Wrap(err, "failed to parse token file")
	}

	return oauthConfig.TokenSource(ctx, token), nil
}

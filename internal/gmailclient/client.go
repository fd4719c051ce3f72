// Package gmailclient builds an authorized Gmail API service from an OAuth
// client secret file and a cached token file.
package gmailclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/welldanyogia/webrana-replypilot/internal/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// User is the Gmail API alias for the authorized account.
const User = "me"

// Scopes needed to read threads and send replies.
var Scopes = []string{gmail.GmailReadonlyScope, gmail.GmailSendScope}

// NewService returns a Gmail service authorized with the token in tokenFile.
// A missing token is a configuration error; run Authorize first.
func NewService(ctx context.Context, credentialsFile, tokenFile string) (*gmail.Service, error) {
	config, err := oauthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfiguration,
			fmt.Sprintf("gmail token %s is unavailable, authorize first: %v", tokenFile, err),
			apperrors.CodeConfiguration)
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// Authorize runs the interactive consent flow: it prints the consent URL to
// out, reads the authorization code from in and caches the token in tokenFile.
func Authorize(ctx context.Context, credentialsFile, tokenFile string, in io.Reader, out io.Writer) error {
	config, err := oauthConfig(credentialsFile)
	if err != nil {
		return err
	}

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following link in your browser then type the authorization code:\n%s\n", authURL)

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("unable to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: empty authorization code", apperrors.ErrInvalidInput)
	}

	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return saveToken(tokenFile, tok)
}

func oauthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfiguration,
			fmt.Sprintf("unable to read client secret file: %v", err), apperrors.CodeConfiguration)
	}
	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfiguration,
			fmt.Sprintf("unable to parse client secret file: %v", err), apperrors.CodeConfiguration)
	}
	return config, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to save oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to encode oauth token: %w", err)
	}
	return nil
}

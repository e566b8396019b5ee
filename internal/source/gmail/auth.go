package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// OAuthConfig reads an installed-app client secret for read-only mail access.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read gmail credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse gmail credentials: %w", err)
	}
	return conf, nil
}

// NewService builds a Gmail client from the client secret and a cached token.
// A missing token is an error; run Authorize once to create it.
func NewService(ctx context.Context, credentialsFile, tokenFile string) (*gmailapi.Service, error) {
	conf, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := loadToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("load gmail token (authorize first): %w", err)
	}
	// refreshed tokens are not written back; the refresh token stays valid
	client := conf.Client(ctx, tok)
	return gmailapi.NewService(ctx, option.WithHTTPClient(client))
}

// Authorize runs the console consent flow: print the URL, read the code, save the token.
func Authorize(ctx context.Context, credentialsFile, tokenFile string, in io.Reader, out io.Writer) error {
	conf, err := OAuthConfig(credentialsFile)
	if err != nil {
		return err
	}
	url := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	if _, err := fmt.Fprintf(out, "Open this link, approve access, then paste the authorization code:\n%s\n> ", url); err != nil {
		return err
	}
	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read authorization code: %w", err)
	}
	tok, err := conf.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	return saveToken(tokenFile, tok)
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// Package gdrive stores uploaded files in a shared Google Drive folder.
package gdrive

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"edms-backend/internal/blob"
	"edms-backend/internal/store"
)

const folderName = "EDMS Documents"

const folderMimeType = "application/vnd.google-apps.folder"

// Credentials holds the OAuth2 client and refresh token used to act on the
// pre-authorized Drive account.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	RefreshToken string
}

// Store uploads files to Google Drive and returns their view link.
type Store struct {
	service *drive.Service
}

// New constructs the adapter. Missing credentials are a configuration
// error surfaced at startup, not per request.
func New(ctx context.Context, creds Credentials) (*Store, error) {
	if strings.TrimSpace(creds.ClientID) == "" ||
		strings.TrimSpace(creds.ClientSecret) == "" ||
		strings.TrimSpace(creds.RefreshToken) == "" {
		return nil, fmt.Errorf("google drive credentials not configured")
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	service, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("init drive service: %w", err)
	}
	return &Store{service: service}, nil
}

// Upload writes the local file into the documents folder, makes it
// link-readable, and returns the web view link.
func (s *Store) Upload(ctx context.Context, localPath, fileName, mimeType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	folderID, err := s.ensureFolder(ctx)
	if err != nil {
		return "", err
	}

	meta := &drive.File{Name: fileName}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	created, err := s.service.Files.Create(meta).
		Context(ctx).
		Media(f, googleapi.ContentType(mimeType)).
		Fields("id", "webViewLink").
		Do()
	if err != nil {
		return "", fmt.Errorf("drive upload %s: %w", fileName, err)
	}

	// Anyone with the link can read; the app has no per-user Drive ACLs.
	_, err = s.service.Permissions.Create(created.Id, &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive share %s: %w", created.Id, err)
	}

	return created.WebViewLink, nil
}

func (s *Store) Backend() string {
	return store.StorageGoogleDrive
}

// ensureFolder finds or creates the destination folder and returns its id.
func (s *Store) ensureFolder(ctx context.Context) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", folderName, folderMimeType)
	list, err := s.service.Files.List().Context(ctx).Q(query).Fields("files(id)").Do()
	if err != nil {
		return "", fmt.Errorf("drive list folder: %w", err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder, err := s.service.Files.Create(&drive.File{
		Name:     folderName,
		MimeType: folderMimeType,
	}).Context(ctx).Fields("id").Do()
	if err != nil {
		return "", fmt.Errorf("drive create folder: %w", err)
	}
	return folder.Id, nil
}

var _ blob.Uploader = (*Store)(nil)

package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// AzuriteBaseURL is the local emulator's default account endpoint.
	AzuriteBaseURL    = "http://127.0.0.1:10000/devstoreaccount1"
	DefaultContainer  = "tasks"
	DefaultBlob       = "tasks.csv"
	blobAPIVersion    = "2020-10-02"
	blobContentType   = "text/csv; charset=utf-8"
	blobProductionURL = "https://%s.blob.core.windows.net"
)

type BlobConfig struct {
	Account   string
	Container string
	Blob      string
	SASToken  string
	// Local targets the Azurite emulator instead of the account endpoint.
	Local bool
	// BaseURL overrides the account endpoint.
	BaseURL string
}

// BlobStore keeps the CSV as a single block blob. Requests are authorized
// with a SAS token only.
type BlobStore struct {
	cfg    BlobConfig
	client *http.Client
}

func NewBlobStore(cfg BlobConfig, client *http.Client) *BlobStore {
	if cfg.Container == "" {
		cfg.Container = DefaultContainer
	}
	if cfg.Blob == "" {
		cfg.Blob = DefaultBlob
	}
	if client == nil {
		client = &http.Client{}
	}
	return &BlobStore{cfg: cfg, client: client}
}

func (s *BlobStore) Name() string { return "blob" }

// URL returns the blob address without the SAS token.
func (s *BlobStore) URL() string {
	base := s.cfg.BaseURL
	switch {
	case base != "":
	case s.cfg.Local:
		base = AzuriteBaseURL
	default:
		base = fmt.Sprintf(blobProductionURL, s.cfg.Account)
	}
	return strings.TrimRight(base, "/") + "/" + s.cfg.Container + "/" + s.cfg.Blob
}

func (s *BlobStore) signedURL() string {
	u := s.URL()
	if sas := strings.TrimPrefix(s.cfg.SASToken, "?"); sas != "" {
		u += "?" + sas
	}
	return u
}

func (s *BlobStore) Load(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.signedURL(), nil)
	if err != nil {
		return "", loadError(s.Name(), fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("x-ms-version", blobAPIVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", loadError(s.Name(), fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", loadError(s.Name(), fmt.Errorf("failed to read response body: %w", err))
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return string(body), nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", loadError(s.Name(), fmt.Errorf("blob error (%d): %s", resp.StatusCode, string(body)))
	}
}

func (s *BlobStore) Save(ctx context.Context, text string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.signedURL(), strings.NewReader(text))
	if err != nil {
		return saveError(s.Name(), fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("x-ms-version", blobAPIVersion)
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	req.Header.Set("Content-Type", blobContentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return saveError(s.Name(), fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return saveError(s.Name(), fmt.Errorf("blob error (%d): %s", resp.StatusCode, string(body)))
	}
	return nil
}

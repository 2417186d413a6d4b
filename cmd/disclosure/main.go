// Command disclosure is a host-side CLI for pulling disclosure export
// bundles from a running givers server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/cenkalti/backoff/v5"
)

// Environment provides an abstraction around the execution environment.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer
}

type ExportCmd struct {
	Type   string `required:"" enum:"user,project" help:"the subject type of the export (user or project)."`
	ID     string `required:"" help:"the subject id (UUID) of the export."`
	Output string `short:"o" help:"write the bundle to this file instead of stdout."`
}

func (cmd *ExportCmd) Run(env *Environment, client *exportClient) error {
	body, err := client.Export(context.Background(), cmd.Type, cmd.ID)
	if err != nil {
		return err
	}

	out := env.Stdout
	if cmd.Output != "" {
		f, err := os.Create(cmd.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	_, err = out.Write(body)
	return err
}

type cli struct {
	Export ExportCmd `cmd:"" help:"Pull a disclosure export bundle."`
}

// exportClient calls the admin export endpoint with retry on transient
// failures.
type exportClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func newExportClient() (*exportClient, error) {
	baseURL := os.Getenv("GIVERS_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	token := os.Getenv("GIVERS_API_TOKEN")
	if token == "" {
		return nil, errors.New("missing GIVERS_API_TOKEN (host session token)")
	}
	return &exportClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *exportClient) Export(ctx context.Context, subjectType, subjectID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/api/admin/disclosure-export?type=%s&id=%s",
		c.baseURL, url.QueryEscape(subjectType), url.QueryEscape(subjectID))

	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("server returned %s", resp.Status)
		default:
			return nil, backoff.Permanent(fmt.Errorf("server returned %s: %s", resp.Status, body))
		}
	}

	return backoff.Retry(ctx, operation, backoff.WithBackOff(backoff.NewExponentialBackOff()))
}

func main() {
	env := &Environment{Stdout: os.Stdout, Stderr: os.Stderr}

	client, err := newExportClient()
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		os.Exit(1)
	}

	var c cli
	ktx := kong.Parse(&c,
		kong.Name("disclosure"),
		kong.Description("Host tooling for disclosure exports."),
		kong.Bind(env, client),
	)
	ktx.FatalIfErrorf(ktx.Run())
}

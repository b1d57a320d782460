package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lo-bi/vintedreposter/internal/config"
	"github.com/lo-bi/vintedreposter/internal/curlparse"
	"github.com/lo-bi/vintedreposter/internal/session"
	"github.com/lo-bi/vintedreposter/internal/vinted"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vintedreposter",
		Short: "Republish your own marketplace listings as fresh listings",
		Long: `vintedreposter clones one of your existing marketplace listings into a
brand new listing: it re-uploads the photos, recreates the item with the
same fields, and removes the old listing.

Authentication reuses your browser session: copy any request to the
marketplace as cURL from the browser's network tab and feed it in.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newRepostCmd())

	return cmd
}

// app bundles what every command needs: config, the API client bound to
// the captured browser session, and the credential resolver backed by the
// captured headers.
type app struct {
	cfg      *config.Config
	client   *vinted.Client
	cache    *session.MapCache
	resolver *session.Resolver
}

func loadApp(configPath, curlPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	curlText, err := readCurl(curlPath)
	if err != nil {
		return nil, err
	}
	captured, err := curlparse.Parse(curlText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the cURL request: %w", err)
	}

	client, err := vinted.New(vinted.Options{
		BaseURL:           cfg.BaseURL,
		UserAgent:         cfg.UserAgent,
		Headers:           captured.Headers,
		Cookies:           captured.Cookies,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}

	// The captured request doubles as the observed-header cache: if the
	// browser already sent an anti-forgery token or anon id, reuse it.
	cache := session.NewMapCache()
	cache.SetAll(captured.Headers)

	return &app{
		cfg:      cfg,
		client:   client,
		cache:    cache,
		resolver: session.NewResolver(client, cache),
	}, nil
}

func readCurl(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read cURL file: %w", err)
		}
		return string(data), nil
	}
	fmt.Fprintln(os.Stderr, "Paste your cURL command, then Ctrl-D:")
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read cURL text from stdin: %w", err)
	}
	return string(data), nil
}

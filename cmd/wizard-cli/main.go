package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"leadwizard/api/pkg/renderers/terminal"
	"leadwizard/api/services/wizard"
)

// postTimeout bounds the request made by --post.
const postTimeout = 15 * time.Second

var (
	variantID    string
	variantsFile string
	postURL      string
)

var rootCmd = &cobra.Command{
	Use:   "wizard-cli",
	Short: "Fill in a lead form in the terminal",
	Long: `Fill in a lead form in the terminal.

The wizard asks for every step of the chosen form, blocks on incomplete
selections and invalid fields the same way the site does, and prints the
submitted payload as JSON. With --post the form is also sent to the
service's one-shot submit endpoint.`,
	SilenceUsage: true,
	RunE:         runWizard,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available forms",
	RunE:  runList,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&variantsFile, "variants-file", "", "YAML file with additional or overriding form variants")
	rootCmd.Flags().StringVarP(&variantID, "variant", "v", "contact", "form variant to fill in")
	rootCmd.Flags().StringVar(&postURL, "post", "", "API base URL to submit to, e.g. http://localhost:8080/api/v1")
	rootCmd.AddCommand(listCmd)
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadCatalog() (*wizard.Catalog, error) {
	cat := wizard.DefaultCatalog()
	if variantsFile == "" {
		return cat, nil
	}
	vs, err := wizard.LoadVariantsFile(variantsFile)
	if err != nil {
		return nil, err
	}
	return cat.With(vs...), nil
}

func runList(cmd *cobra.Command, _ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, v := range cat.List() {
		steps := make([]string, 0, len(v.Steps()))
		for _, s := range v.Steps() {
			steps = append(steps, string(s.ID))
		}
		fmt.Fprintf(out, "%-10s %-24s %s\n", v.ID(), v.Title(), strings.Join(steps, " > "))
	}
	return nil
}

func runWizard(cmd *cobra.Command, _ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	v, ok := cat.Get(variantID)
	if !ok {
		return fmt.Errorf("unknown form %q, see wizard-cli list", variantID)
	}

	ctrl := wizard.NewController(v)
	runner := terminal.New(terminal.WithPromptDriver(terminal.NewSurveyDriver(cmd.ErrOrStderr())))
	payload, err := runner.Run(cmd.Context(), ctrl)
	if err != nil {
		return fmt.Errorf("wizard: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return err
	}

	if postURL == "" {
		return nil
	}
	return post(cmd.Context(), postURL, ctrl.View())
}

// post replays the finished wizard against the one-shot submit endpoint.
// The request carries every field value, transient ones included, so the
// service runs the same checks again.
func post(ctx context.Context, base string, view wizard.View) error {
	body, err := json.Marshal(map[string]any{
		"fields":     view.Fields,
		"selections": view.Selections,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, postTimeout)
	defer cancel()
	url := strings.TrimRight(base, "/") + "/forms/" + view.Variant + "/submit"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post form: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("submit rejected: %s: %s", resp.Status, bytes.TrimSpace(respBody))
	}
	slog.Info("form submitted", "url", url, "response", string(respBody))
	return nil
}

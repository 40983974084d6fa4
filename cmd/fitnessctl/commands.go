package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zzzxajak-prog/FitnessApp/internal/auth"
	"github.com/zzzxajak-prog/FitnessApp/internal/classify"
	"github.com/zzzxajak-prog/FitnessApp/internal/config"
	"github.com/zzzxajak-prog/FitnessApp/internal/model"
	"github.com/zzzxajak-prog/FitnessApp/internal/repository"
	"github.com/zzzxajak-prog/FitnessApp/internal/service"
	"github.com/zzzxajak-prog/FitnessApp/internal/storage"
	"github.com/zzzxajak-prog/FitnessApp/internal/tracker"
)

type rootOptions struct {
	configPath string
	dataDir    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "fitnessctl",
		Short:         "Fitness tracker command line tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (or FITNESS_CONFIG)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (overrides config)")

	root.AddCommand(newRegisterCmd(opts))
	root.AddCommand(newLoginCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newBMICmd())
	root.AddCommand(newSleepCmd())
	root.AddCommand(newPulseCmd())
	root.AddCommand(newAdviceCmd())
	root.AddCommand(newFoodsCmd())
	return root
}

// app is what the store-backed commands need. close must be called.
type app struct {
	cfg   config.Config
	store repository.Store
	ctl   *service.Controller
}

func (a *app) close() {
	a.ctl.Logout()
	_ = a.store.Close()
}

func loadApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	// Logs go to stderr so stdout stays clean for --json.
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	store, err := storage.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	passwords := auth.NewPasswordService(cfg.HashPasswords)
	ctl := service.NewController(store, store, passwords, logger, service.DefaultConfig())
	return &app{cfg: cfg, store: store, ctl: ctl}, nil
}

// readSecret returns flagValue, or the next line of stdin when the flag was
// not given. Input is not masked.
func readSecret(r *bufio.Reader, w io.Writer, name, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	_, _ = fmt.Fprintf(w, "%s: ", name)
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(name), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var password, confirm string

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create or replace a user",
		Long: `Create a user in the credential table. Registering an existing name
replaces its password. Without --password the password and its
confirmation are read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			pw, err := readSecret(in, cmd.ErrOrStderr(), "Password", password)
			if err != nil {
				return err
			}
			confirmFlag := confirm
			if confirmFlag == "" {
				confirmFlag = password
			}
			cf, err := readSecret(in, cmd.ErrOrStderr(), "Confirm", confirmFlag)
			if err != nil {
				return err
			}

			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.ctl.Register(context.Background(), args[0], pw, cf); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", strings.TrimSpace(args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (defaults to --password)")
	return cmd
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var password string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Check a login and print the user's dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr(), "Password", password)
			if err != nil {
				return err
			}

			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.ctl.Login(context.Background(), args[0], pw)
			if err != nil {
				return err
			}
			state := s.State()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), state)
			}
			printSnapshot(cmd.OutOrStdout(), state.Snapshot)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the session state as JSON")
	return cmd
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the saved snapshot without logging in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			snap, err := a.store.LoadSnapshot(context.Background())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "storage:  %s (%s)\n", a.cfg.Storage, storage.Describe(a.cfg))
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func newBMICmd() *cobra.Command {
	var weight, height float64

	cmd := &cobra.Command{
		Use:   "bmi",
		Short: "Compute and classify a body-mass index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := tracker.New(model.DefaultSnapshot())
			if _, err := t.SetWeightHeight(weight, height); err != nil {
				return err
			}
			body := t.Body()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "BMI %.1f: %s\n%s\n", body.BMI, body.BMIResult.Band, body.BMIResult.Advice)
			return nil
		},
	}
	cmd.Flags().Float64Var(&weight, "weight", 0, "weight in kg")
	cmd.Flags().Float64Var(&height, "height", 0, "height in cm")
	_ = cmd.MarkFlagRequired("weight")
	_ = cmd.MarkFlagRequired("height")
	return cmd
}

func newSleepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sleep <hours>",
		Short: "Classify a night's sleep",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := parseNumber("hours", args[0])
			if err != nil {
				return err
			}
			res, err := tracker.New(model.DefaultSnapshot()).RecordSleep(hours)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newPulseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pulse <bpm>",
		Short: "Classify a resting pulse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bpm, err := parseNumber("bpm", args[0])
			if err != nil {
				return err
			}
			res, err := tracker.New(model.DefaultSnapshot()).RecordPulse(bpm)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newAdviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advice <goal description>",
		Short: "Show the advice a goal description would get",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printResult(cmd.OutOrStdout(), classify.ClassifyGoal(strings.Join(args, " ")))
			return nil
		},
	}
}

func newFoodsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "foods",
		Short: "List the food catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			foods := tracker.Foods()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), foods)
			}
			for _, f := range foods {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-16s %6.0f kcal/100g\n", f.Name, f.KcalPer100g)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

func parseNumber(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, s)
	}
	return v, nil
}

func printResult(w io.Writer, res classify.Result) {
	_, _ = fmt.Fprintf(w, "%s\n%s\n", res.Band, res.Advice)
}

func printSnapshot(w io.Writer, snap model.Snapshot) {
	_, _ = fmt.Fprintf(w, "user:     %s\n", snap.Username)
	_, _ = fmt.Fprintf(w, "water:    %.2f / %.2f L\n", snap.WaterIntake, model.WaterGoal)
	_, _ = fmt.Fprintf(w, "calories: %.1f kcal\n", snap.TotalCalories)
	_, _ = fmt.Fprintf(w, "steps:    %.0f\n", snap.Steps)
	if len(snap.Goals) == 0 {
		_, _ = fmt.Fprintln(w, "goals:    none")
		return
	}
	_, _ = fmt.Fprintln(w, "goals:")
	for i, g := range snap.Goals {
		_, _ = fmt.Fprintf(w, "  %d. %s: %g (%s)\n     %s\n", i+1, g.Desc, g.Value, g.Period, g.Advice)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

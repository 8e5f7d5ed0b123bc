// moodctl is the operator CLI: it validates and converts suggestion
// pool files and pokes at the task storage backend.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/benvon/moodtask/internal/config"
	"github.com/benvon/moodtask/internal/kvstore"
	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/weather"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "moodctl",
		Short: "Operator tooling for the mood task service",
	}

	rootCmd.AddCommand(newPoolCmd())
	rootCmd.AddCommand(newKVCmd())
	rootCmd.AddCommand(newPingCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPoolCmd() *cobra.Command {
	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Inspect and convert suggestion pool files",
	}

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a pool file and report invalid candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := readPool(args[0])
			if err != nil {
				return err
			}

			valid := 0
			for i, candidate := range pool.Tasks {
				if problems := checkCandidate(candidate); len(problems) > 0 {
					for _, p := range problems {
						fmt.Fprintf(cmd.OutOrStdout(), "task %d: %s\n", i, p)
					}
					continue
				}
				valid++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d candidates valid\n", valid, len(pool.Tasks))
			if valid < len(pool.Tasks) {
				return fmt.Errorf("pool contains invalid candidates")
			}
			return nil
		},
	}

	convertCmd := &cobra.Command{
		Use:   "convert <in.yaml> <out.json>",
		Short: "Convert a YAML pool file to the JSON wire format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := readPool(args[0])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(pool, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode pool: %w", err)
			}
			if err := os.WriteFile(args[1], append(out, '\n'), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[1], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d candidates to %s\n", len(pool.Tasks), args[1])
			return nil
		},
	}

	poolCmd.AddCommand(validateCmd)
	poolCmd.AddCommand(convertCmd)
	return poolCmd
}

func newKVCmd() *cobra.Command {
	kvCmd := &cobra.Command{
		Use:   "kv",
		Short: "Read and delete raw storage records",
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the raw value under a storage key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, kv kvstore.Store) error {
				value, found, err := kv.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("key %q not found", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}

	delCmd := &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a storage key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, kv kvstore.Store) error {
				if err := kv.Remove(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}

	kvCmd.AddCommand(getCmd)
	kvCmd.AddCommand(delCmd)
	return kvCmd
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the storage backend connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, kv kvstore.Store) error {
				if err := kv.Ping(ctx); err != nil {
					return fmt.Errorf("storage unreachable: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "storage healthy")
				return nil
			})
		},
	}
}

// withStore connects the backend named by the environment, runs fn,
// and closes the connection.
func withStore(fn func(context.Context, kvstore.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var kv kvstore.Store
	switch cfg.StorageBackend {
	case "redis":
		kv, err = kvstore.NewRedisStore(cfg.RedisURL)
	case "postgres":
		kv, err = kvstore.NewPostgresStore(cfg.DatabaseURL)
	case "memory":
		return fmt.Errorf("the memory backend holds no data outside a running server")
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}
	defer func() {
		_ = kv.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return fn(ctx, kv)
}

// readPool decodes a pool file, accepting both the JSON wire format
// and its YAML equivalent.
func readPool(path string) (models.Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Pool{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var pool models.Pool
	if jsonErr := json.Unmarshal(data, &pool); jsonErr != nil {
		// YAML pools use the same camelCase keys as the JSON wire
		// format, so route the decoded document through JSON rather
		// than relying on yaml struct mapping.
		var doc any
		if yamlErr := yaml.Unmarshal(data, &doc); yamlErr != nil {
			return models.Pool{}, fmt.Errorf("failed to decode %s as JSON (%v) or YAML (%v)", path, jsonErr, yamlErr)
		}
		bridged, err := json.Marshal(doc)
		if err != nil {
			return models.Pool{}, fmt.Errorf("failed to convert %s: %w", path, err)
		}
		if err := json.Unmarshal(bridged, &pool); err != nil {
			return models.Pool{}, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	return pool, nil
}

// checkCandidate reports what disqualifies a candidate, mirroring the
// filters the server applies when loading a pool.
func checkCandidate(c models.Candidate) []string {
	var problems []string
	if c.Name == "" && c.Title == "" {
		problems = append(problems, "missing both name and title")
	}
	if c.MoodRange.Min < 0 || c.MoodRange.Max > 100 {
		problems = append(problems, fmt.Sprintf("mood range [%d, %d] outside [0, 100]", c.MoodRange.Min, c.MoodRange.Max))
	}
	if c.MoodRange.Min > c.MoodRange.Max {
		problems = append(problems, fmt.Sprintf("mood range min %d exceeds max %d", c.MoodRange.Min, c.MoodRange.Max))
	}
	if len(c.WeatherConditions) == 0 {
		problems = append(problems, "no weather conditions")
	}
	for _, condition := range c.WeatherConditions {
		if condition != models.WeatherAny && !weather.IsValidCondition(condition) {
			problems = append(problems, fmt.Sprintf("unknown weather condition %q", condition))
		}
	}
	return problems
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ghprojects/cache"
	"ghprojects/config"
	"ghprojects/github"
	"ghprojects/logger"
	"ghprojects/service"
)

func main() {
	root := &cobra.Command{
		Use:   "ghprojects",
		Short: "Fetch and curate a GitHub owner's public repositories for a portfolio",
	}

	root.AddCommand(fetchCmd(), cacheCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func fetchCmd() *cobra.Command {
	var preset string
	var force, asJSON bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the curated project list",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := config.LoadEnv()
			if err != nil {
				return err
			}
			if err := logger.Initialize(env.LogLevel); err != nil {
				return err
			}
			defer logger.Sync()

			opts := config.Resolve(preset)

			store, err := cache.NewSQLiteStore(env.CachePath)
			if err != nil {
				return err
			}
			defer store.Close()

			client := github.NewClient(env.Token, github.Options{
				Timeout:    opts.API.Timeout,
				MaxRetries: opts.API.MaxRetries,
				RetryDelay: opts.API.RetryDelay,
			})

			session := service.NewSession(env.Owner, opts, client, store)
			defer session.Close()

			result, err := session.GetProjects(context.Background(), force)
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(result.Projects)
			}

			if result.Err != "" {
				fmt.Fprintln(os.Stderr, result.Err)
			}
			if result.FromCache {
				note := "cached"
				if result.Stale {
					note = "cached, stale"
				}
				fmt.Printf("Showing %d projects (%s, as of %s)\n\n",
					len(result.Projects), note, result.LastUpdated.Format("2006-01-02 15:04"))
			} else {
				fmt.Printf("Showing %d projects\n\n", len(result.Projects))
			}

			for _, p := range result.Projects {
				fmt.Printf("%s  ★%d  %s\n", p.Name, p.Stats.Stars, strings.Join(p.Tech, ", "))
				if opts.Display.ShowDescription {
					fmt.Printf("    %s\n", p.Description)
				}
				fmt.Printf("    %s\n", p.Link)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		fmt.Sprintf("configuration preset (%s)", strings.Join(config.PresetNames(), ", ")))
	cmd.Flags().BoolVar(&force, "force", false, "bypass the cache and fetch fresh data")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the project list as JSON")
	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Remove all cached project data",
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := config.LoadEnv()
				if err != nil {
					return err
				}
				if err := logger.Initialize(env.LogLevel); err != nil {
					return err
				}
				defer logger.Sync()

				store, err := cache.NewSQLiteStore(env.CachePath)
				if err != nil {
					return err
				}
				defer store.Close()

				cache.New(store, cache.Options{}).InvalidateAll()
				fmt.Println("Cache cleared")
				return nil
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache entry count and size",
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := config.LoadEnv()
				if err != nil {
					return err
				}
				if err := logger.Initialize(env.LogLevel); err != nil {
					return err
				}
				defer logger.Sync()

				store, err := cache.NewSQLiteStore(env.CachePath)
				if err != nil {
					return err
				}
				defer store.Close()

				stats := cache.New(store, cache.Options{}).Stats()
				fmt.Printf("Entries: %d\n", stats.Entries)
				fmt.Printf("Size:    %d KB\n", stats.TotalBytes/1024)
				if !stats.Oldest.IsZero() {
					fmt.Printf("Oldest:  %s\n", stats.Oldest.Format("2006-01-02 15:04:05"))
					fmt.Printf("Newest:  %s\n", stats.Newest.Format("2006-01-02 15:04:05"))
				}
				return nil
			},
		},
	)
	return cmd
}

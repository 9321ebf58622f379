package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yourusername/tubetrove-go/internal/app"
	"github.com/yourusername/tubetrove-go/internal/client"
	"github.com/yourusername/tubetrove-go/internal/domain"
	"github.com/yourusername/tubetrove-go/internal/tui"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "tubetrove",
		Short: "TubeTrove CLI - download videos and music with yt-dlp",
		Long: `A command-line interface for TubeTrove: queue video or audio downloads,
browse the downloaded library and change the gallery theme.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8085", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(galleryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

// newClient returns an API client, starting the server first unless --no-auto-start
func newClient() *client.Client {
	c := client.New(serverURL)
	if noAutoStart {
		return c
	}
	if err := ensureServerRunning(c); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return c
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Queue a video or audio download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kindFlag, _ := cmd.Flags().GetString("kind")
		format, _ := cmd.Flags().GetString("format")
		kind, err := domain.ParseMediaKind(kindFlag)
		if err != nil {
			return err
		}
		if _, err := domain.NewDownloadRequest(args[0], kind, format); err != nil {
			return err
		}

		c := newClient()
		ctx, cancel := requestContext()
		defer cancel()

		d, err := c.AddDownload(ctx, args[0], kind, format)
		if err != nil {
			return err
		}
		fmt.Println("Download queued!")
		fmt.Printf("ID:     %s\n", d.ID)
		fmt.Printf("Kind:   %s (.%s)\n", d.Kind, d.Format)
		fmt.Printf("Status: %s\n", d.StatusMessage())
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the download history",
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, _ := cmd.Flags().GetString("stage")
		kind, _ := cmd.Flags().GetString("kind")

		c := newClient()
		ctx, cancel := requestContext()
		defer cancel()

		downloads, err := c.ListDownloads(ctx, stage, kind)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tKIND\tFORMAT\tSTAGE\tCREATED")
		for _, d := range downloads {
			title := d.Title
			if title == "" {
				title = d.URL
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(d.ID, 8),
				truncate(title, 40),
				d.Kind,
				d.Format,
				d.Stage,
				humanize.Time(d.CreatedAt))
		}
		return w.Flush()
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show download details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ctx, cancel := requestContext()
		defer cancel()

		d, err := c.GetDownload(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Download Details:\n")
		fmt.Printf("  ID:       %s\n", d.ID)
		fmt.Printf("  URL:      %s\n", d.URL)
		fmt.Printf("  Kind:     %s (.%s)\n", d.Kind, d.Format)
		fmt.Printf("  Stage:    %s\n", d.Stage)
		fmt.Printf("  Status:   %s\n", d.StatusMessage())
		fmt.Printf("  Created:  %s\n", humanize.Time(d.CreatedAt))
		if d.MediaPath != "" {
			fmt.Printf("  File:     %s\n", d.MediaPath)
		}
		if d.ThumbnailPath != "" {
			fmt.Printf("  Art:      %s\n", d.ThumbnailPath)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ctx, cancel := requestContext()
		defer cancel()

		stats, err := c.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:       %d\n", stats.Total)
		fmt.Printf("  In progress: %d\n", stats.InProgress)
		fmt.Printf("  Done:        %d\n", stats.Done)
		fmt.Printf("  Failed:      %d\n", stats.Failed)
		return nil
	},
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List the downloaded library",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ctx, cancel := requestContext()
		defer cancel()

		snap, err := c.Library(ctx)
		if err != nil {
			return err
		}
		if snap.Error != "" {
			fmt.Fprintf(os.Stderr, "Warning: last scan failed: %s\n", snap.Error)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\t#\tTITLE\tFILE")
		for _, view := range []app.CategoryView{snap.Videos, snap.Music} {
			for i, tile := range view.Tiles {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", view.Category, i, tile.Title, tile.MediaPath)
			}
		}
		return w.Flush()
	},
}

var openCmd = &cobra.Command{
	Use:   "open [video|audio] [index]",
	Short: "Open a library entry with the system's default player",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := domain.ParseCategory(args[0])
		if err != nil {
			return err
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[1])
		}

		c := newClient()
		ctx, cancel := requestContext()
		defer cancel()

		tile, err := c.Open(ctx, category, index)
		if err != nil {
			return err
		}
		fmt.Printf("Opened %s\n", tile.MediaPath)
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Rescan the library directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ctx, cancel := requestContext()
		defer cancel()

		if err := c.RefreshLibrary(ctx); err != nil {
			return err
		}
		fmt.Println("Library rescan requested")
		return nil
	},
}

var themeCmd = &cobra.Command{
	Use:   "theme [name]",
	Short: "Show or change the gallery theme",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ctx, cancel := requestContext()
		defer cancel()

		if len(args) == 0 {
			settings, err := c.Settings(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Theme: %s\n", settings.Theme)
			fmt.Printf("Available: %v\n", domain.Themes)
			return nil
		}

		if err := domain.ValidateTheme(args[0]); err != nil {
			return fmt.Errorf("%w (available: %v)", err, domain.Themes)
		}
		settings, err := c.SetTheme(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Theme changed to %s\n", settings.Theme)
		return nil
	},
}

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Browse the library in an interactive gallery",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(newClient())
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow download status messages as they happen",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		return c.Watch(ctx, func(e app.Event) {
			switch e.Type {
			case app.EventStatus:
				fmt.Printf("%s  %s\n", e.Time.Format("15:04:05"), e.Message)
			case app.EventSettings:
				if e.Settings != nil {
					fmt.Printf("%s  Theme: %s\n", e.Time.Format("15:04:05"), e.Settings.Theme)
				}
			case app.EventLibrary:
				if e.Library != nil {
					fmt.Printf("%s  Library: %d videos, %d music\n", e.Time.Format("15:04:05"),
						len(e.Library.Videos.Tiles), len(e.Library.Music.Tiles))
				}
			}
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the server configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "configs/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	addCmd.Flags().StringP("kind", "k", "video", "Media kind (video, audio)")
	addCmd.Flags().StringP("format", "f", "", "Container format (video: mp4, m4a, mkv; audio: mp3, ogg, wav)")
	listCmd.Flags().StringP("stage", "s", "", "Filter by stage")
	listCmd.Flags().String("kind", "", "Filter by kind")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

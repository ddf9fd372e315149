package orm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/dorm/pkg/settings"
	"github.com/shashiranjanraj/dorm/pkg/workerpool"
)

// probeWorkers bounds concurrent database and cache pings.
const probeWorkers = 4

// ─── check ────────────────────────────────────────────────────────────────────

func newCheckCmd(c *Commands) *cobra.Command {
	var (
		aliases []string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Checks the entire project for potential problems.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			errs, warns, err := c.engine.check(ctx, aliases)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(errs)+len(warns) == 0 {
				fmt.Fprintln(out, "System check identified no issues (0 silenced).")
				return nil
			}
			fmt.Fprintln(out, "System check identified some issues:")
			if len(errs) > 0 {
				fmt.Fprintln(out, "\nERRORS:")
				for _, e := range errs {
					fmt.Fprintln(out, e)
				}
			}
			if len(warns) > 0 {
				fmt.Fprintln(out, "\nWARNINGS:")
				for _, w := range warns {
					fmt.Fprintln(out, w)
				}
			}
			fmt.Fprintf(out, "\nSystem check identified %d issues (0 silenced).\n", len(errs)+len(warns))
			if len(errs) > 0 {
				return fmt.Errorf("check: %d error(s) found", len(errs))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&aliases, "database", nil, "Run database checks against these aliases (default: all).")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Give up on a backend after this long.")
	return cmd
}

// check pings the databases named by aliases (all when empty) and every
// cache, and warns about installed apps makemigrations cannot reach.
func (e *Engine) check(ctx context.Context, aliases []string) (errs, warns []string, err error) {
	apps, err := e.Apps()
	if err != nil {
		return nil, nil, err
	}
	for _, app := range apps {
		if app.HasModels() && !app.IsLocal() {
			warns = append(warns, fmt.Sprintf("%s: (orm.W001) app has models but no directory on the search path; makemigrations will skip it.", app.Label))
		}
	}

	dbs, err := e.databases()
	if err != nil {
		return nil, nil, err
	}
	if len(aliases) == 0 {
		aliases = dbs.Aliases()
	}
	pings := workerpool.Probe(ctx, probeWorkers, aliases, dbs.Ping)
	for _, alias := range aliases {
		if err := pings[alias]; err != nil {
			errs = append(errs, fmt.Sprintf("?: (orm.E001) database %q: %v", alias, err))
		}
	}

	caches, err := e.cacheManager()
	if err != nil {
		return nil, nil, err
	}
	cacheAliases := caches.Aliases()
	cachePings := workerpool.Probe(ctx, probeWorkers, cacheAliases, func(ctx context.Context, alias string) error {
		store, err := caches.Use(alias)
		if err != nil {
			return err
		}
		return store.Ping(ctx)
	})
	for _, alias := range cacheAliases {
		if err := cachePings[alias]; err != nil {
			errs = append(errs, fmt.Sprintf("?: (orm.E002) cache %q (%s): %v", alias, caches.Backend(alias), err))
		}
	}
	return errs, warns, nil
}

// ─── diffsettings ─────────────────────────────────────────────────────────────

func newDiffSettingsCmd(c *Commands) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "diffsettings",
		Short: "Displays differences between the current settings and the defaults.",
		Long: "Displays differences between the current settings and the defaults.\n\n" +
			"Settings that don't appear in the defaults are followed by \"###\".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			holder := c.engine.Settings()
			s, err := holder.Current()
			if err != nil {
				return err
			}
			for _, line := range diffSettings(holder.Raw(), settings.Defaults(s.BaseDir), all) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Display all settings, regardless of their value.")
	return cmd
}

func diffSettings(current, defaults settings.Map, all bool) []string {
	names := map[string]bool{}
	for k := range current {
		names[k] = true
	}
	if all {
		for k := range defaults {
			names[k] = true
		}
	}
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		val, set := current[k]
		def, known := defaults[k]
		switch {
		case !known:
			lines = append(lines, fmt.Sprintf("%s = %s  ###", k, render(val)))
		case set && !sameValue(val, def):
			lines = append(lines, fmt.Sprintf("%s = %s", k, render(val)))
		case all && set:
			lines = append(lines, fmt.Sprintf("%s = %s", k, render(val)))
		case all:
			lines = append(lines, fmt.Sprintf("%s = %s", k, render(def)))
		}
	}
	return lines
}

func render(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func sameValue(a, b any) bool {
	x, errA := json.Marshal(a)
	y, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(x, y)
}

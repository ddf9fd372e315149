package orm

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/dorm/pkg/database"
)

// Fixture is one serialized row.
type Fixture struct {
	Model  string         `json:"model"`
	PK     any            `json:"pk"`
	Fields map[string]any `json:"fields"`
}

type modelRef struct {
	app   *App
	model any
}

// ─── dumpdata ─────────────────────────────────────────────────────────────────

func newDumpDataCmd(c *Commands) *cobra.Command {
	var (
		alias  string
		indent int
		output string
	)
	cmd := &cobra.Command{
		Use:   "dumpdata [app_label[.ModelName]...]",
		Short: "Output the contents of the database as a fixture.",
		Long: "Output the contents of the database as a JSON fixture.\n\n" +
			"With --output the fixture is written to the default storage disk instead of stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(); err != nil {
				return err
			}
			refs, err := c.resolveModels(args)
			if err != nil {
				return err
			}
			db, err := c.engine.DB(alias)
			if err != nil {
				return err
			}

			fixtures := []Fixture{}
			for _, ref := range refs {
				rows, err := dumpModel(db.WithContext(cmd.Context()), ref)
				if err != nil {
					return err
				}
				fixtures = append(fixtures, rows...)
			}

			var data []byte
			if indent > 0 {
				data, err = json.MarshalIndent(fixtures, "", strings.Repeat(" ", indent))
			} else {
				data, err = json.Marshal(fixtures)
			}
			if err != nil {
				return fmt.Errorf("dumpdata: encode: %w", err)
			}
			data = append(data, '\n')

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			mgr, err := c.engine.Storage()
			if err != nil {
				return err
			}
			disk, err := mgr.Default(cmd.Context())
			if err != nil {
				return err
			}
			if err := disk.Put(cmd.Context(), output, data); err != nil {
				return fmt.Errorf("dumpdata: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅  Wrote %d objects to %s\n", len(fixtures), disk.URL(output))
			return nil
		},
	}
	cmd.Flags().StringVar(&alias, "database", database.DefaultAlias, "Nominates a specific database to dump fixtures from.")
	cmd.Flags().IntVar(&indent, "indent", 0, "Specifies the indent level to use when pretty-printing output.")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Specifies a path on the default storage disk to write the output to.")
	return cmd
}

// resolveModels turns "app" and "app.Model" labels into model references.
// No labels means every model of every installed app.
func (c *Commands) resolveModels(labels []string) ([]modelRef, error) {
	apps, err := c.engine.Apps()
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		var refs []modelRef
		for _, app := range apps {
			for _, m := range app.Models {
				refs = append(refs, modelRef{app: app, model: m})
			}
		}
		return refs, nil
	}

	var refs []modelRef
	for _, label := range labels {
		if app, err := c.engine.App(label); err == nil {
			for _, m := range app.Models {
				refs = append(refs, modelRef{app: app, model: m})
			}
			continue
		}
		ref, ok := findModel(apps, label)
		if !ok {
			return nil, fmt.Errorf("unknown application or model: %s", label)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func findModel(apps []*App, label string) (modelRef, bool) {
	for _, app := range apps {
		for _, m := range app.Models {
			if strings.EqualFold(app.ModelName(m), label) {
				return modelRef{app: app, model: m}, true
			}
		}
	}
	return modelRef{}, false
}

func dumpModel(db *gorm.DB, ref modelRef) ([]Fixture, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(ref.model); err != nil {
		return nil, fmt.Errorf("dumpdata: %s: %w", ref.app.ModelName(ref.model), err)
	}
	pk := ""
	if f := stmt.Schema.PrioritizedPrimaryField; f != nil {
		pk = f.DBName
	}

	q := db.Model(ref.model)
	if pk != "" {
		q = q.Order(pk)
	}
	var rows []map[string]any
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("dumpdata: %s: %w", ref.app.ModelName(ref.model), err)
	}

	out := make([]Fixture, 0, len(rows))
	for _, row := range rows {
		fx := Fixture{Model: ref.app.ModelName(ref.model), Fields: map[string]any{}}
		for col, val := range row {
			if col == pk {
				fx.PK = val
				continue
			}
			fx.Fields[col] = val
		}
		out = append(out, fx)
	}
	return out, nil
}

// ─── flush ────────────────────────────────────────────────────────────────────

func newFlushCmd(c *Commands) *cobra.Command {
	var (
		alias   string
		noInput bool
	)
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Removes ALL DATA from the tables of installed apps.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(); err != nil {
				return err
			}
			refs, err := c.resolveModels(nil)
			if err != nil {
				return err
			}
			db, err := c.engine.DB(alias)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !noInput {
				fmt.Fprintf(out, "You have requested a flush of the database %q.\n"+
					"This will IRREVERSIBLY DESTROY all data in the tables of installed apps.\n"+
					"Type 'yes' to continue, or 'no' to cancel: ", alias)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(answer) != "yes" {
					fmt.Fprintln(out, "Flush cancelled.")
					return nil
				}
			}

			session := db.WithContext(cmd.Context()).Session(&gorm.Session{AllowGlobalUpdate: true})
			flushed := 0
			for _, ref := range refs {
				if !session.Migrator().HasTable(ref.model) {
					continue
				}
				if err := session.Unscoped().Delete(ref.model).Error; err != nil {
					return fmt.Errorf("flush: %s: %w", ref.app.ModelName(ref.model), err)
				}
				flushed++
			}
			fmt.Fprintf(out, "✅  Flushed %d tables.\n", flushed)
			return nil
		},
	}
	cmd.Flags().StringVar(&alias, "database", database.DefaultAlias, "Nominates a database to flush.")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "Do NOT prompt the user for input of any kind.")
	return cmd
}

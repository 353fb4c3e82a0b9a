package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"pivoteditor/internal/domain"
	"pivoteditor/internal/service"
)

// readDocument parses path, or stdin when path is "-".
func readDocument(cmd *cobra.Command, path string) (domain.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := domain.Parse(data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// writeDocument serializes doc to path, or stdout when path is "" or "-".
func writeDocument(cmd *cobra.Command, path string, doc domain.Document) error {
	data, err := domain.Serialize(doc)
	if err != nil {
		return fmt.Errorf("serialize document: %w", err)
	}
	if path == "" || path == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// validate
// =============================================================================

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check that every pivot is structurally valid",
		Long: `Check that every pivot has a non-empty id, name and model, and that its
domain, rowGroupBys and measures are lists.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			out := cmd.OutOrStdout()
			prog := newProgress(logger)

			failed := 0
			for _, path := range args {
				doc, err := readDocument(cmd, path)
				if err != nil {
					printError(out, "%v", err)
					failed++
					continue
				}
				var verr *domain.ValidationError
				if err := domain.Validate(doc); errors.As(err, &verr) {
					printError(out, "%s: %d of %d pivot(s) invalid", path, len(verr.IDs), doc.Len())
					for _, id := range verr.IDs {
						p, _ := doc.Get(id)
						printDetail(out, "%s", service.Label(id, p))
					}
					failed++
					continue
				}
				printSuccess(out, "%s: %d pivot(s) valid", path, doc.Len())
			}
			prog.done(fmt.Sprintf("Validated %d file(s)", len(args)))

			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed validation", failed, len(args))
			}
			return nil
		},
	}
}

// =============================================================================
// list
// =============================================================================

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list <file>",
		Short: "List the pivots of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			type row struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Model   string `json:"model"`
				Groups  int    `json:"rowGroupBys"`
				Metrics int    `json:"measures"`
				Valid   bool   `json:"valid"`
			}
			var rows []row
			for _, e := range doc.List() {
				rows = append(rows, row{
					ID:      e.ID,
					Name:    e.Pivot.DisplayName(),
					Model:   e.Pivot.DisplayModel(),
					Groups:  len(e.Pivot.RowGroupBys),
					Metrics: len(e.Pivot.Measures),
					Valid:   domain.IsValid(e.Pivot),
				})
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if rows == nil {
					rows = []row{}
				}
				return enc.Encode(rows)
			}

			if len(rows) == 0 {
				printInfo(out, "%s has no pivots", args[0])
				return nil
			}

			cells := make([][]string, len(rows))
			for i, r := range rows {
				valid := iconSuccess
				if !r.Valid {
					valid = iconError
				}
				cells[i] = []string{r.ID, r.Name, r.Model, strconv.Itoa(r.Groups), strconv.Itoa(r.Metrics), valid}
			}
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(styleDim).
				Headers("ID", "Name", "Model", "Groups", "Measures", "Valid").
				Rows(cells...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == -1 {
						return styleHeader
					}
					if row >= 0 && row < len(rows) && !rows[row].Valid {
						return lipgloss.NewStyle().Foreground(colorRed)
					}
					return styleValue
				})

			fmt.Fprintln(out, styleTitle.Render(args[0]))
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// =============================================================================
// fmt
// =============================================================================

func newFmtCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Rewrite a document in canonical form",
		Long: `Rewrite a document with two-space indentation, sorted root keys, pivots in
id order and pivot fields in their canonical order. Unknown fields are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			doc, err := readDocument(cmd, path)
			if err != nil {
				return err
			}
			if !write || path == "-" {
				return writeDocument(cmd, "", doc)
			}
			if err := writeDocument(cmd, path, doc); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Info("formatted", "file", path, "pivots", doc.Len())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to the file")
	return cmd
}

// =============================================================================
// merge
// =============================================================================

func newMergeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge <base> <file>...",
		Short: "Import the pivots of other documents into a base document",
		Long: `Import every pivot of the given files into base. Imported pivots get fresh
numeric ids after the largest id of base and are renamed "imported".`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}

			total := 0
			for _, path := range args[1:] {
				incoming, err := readDocument(cmd, path)
				if err != nil {
					return err
				}
				var res domain.ImportResult
				doc, res = domain.Merge(doc, incoming)
				if res.Count == 0 {
					printWarning(cmd.ErrOrStderr(), "No pivots found in %s", path)
					continue
				}
				total += res.Count
				printInfo(cmd.ErrOrStderr(), "Imported %d pivot(s) from %s starting at id %s", res.Count, path, res.FirstID)
			}

			if err := writeDocument(cmd, output, doc); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Merged %d pivot(s)", total))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

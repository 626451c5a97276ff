package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/abekenov/termgraph/graph"
)

// WriteXLSX writes a three-sheet report (Nodes, Edges, Statistics) to
// path.
func WriteXLSX(g *graph.Graph, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeNodesSheet(f, g); err != nil {
		return err
	}
	if err := writeEdgesSheet(f, g); err != nil {
		return err
	}
	if err := writeStatsSheet(f, g); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: saving %s: %w", path, err)
	}
	return nil
}

func writeNodesSheet(f *excelize.File, g *graph.Graph) error {
	const sheet = "Nodes"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export: creating sheet %s: %w", sheet, err)
	}
	header := []any{"ID", "Name", "Type", "Tier", "Confidence", "Description"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("export: writing header: %w", err)
	}
	for i, n := range g.Nodes() {
		tier := ""
		if n.Tier != nil {
			tier = fmt.Sprintf("%d", *n.Tier)
		}
		row := []any{n.ID, n.Name, string(n.Type), tier, n.Confidence, n.Description}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: writing node row: %w", err)
		}
	}
	return nil
}

func writeEdgesSheet(f *excelize.File, g *graph.Graph) error {
	const sheet = "Edges"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export: creating sheet %s: %w", sheet, err)
	}
	header := []any{"From", "To", "Type", "Confidence", "Explanation"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("export: writing header: %w", err)
	}
	for i, e := range g.Edges() {
		fromName, toName := e.FromID, e.ToID
		if n, ok := g.Node(e.FromID); ok {
			fromName = n.Name
		}
		if n, ok := g.Node(e.ToID); ok {
			toName = n.Name
		}
		row := []any{fromName, toName, string(e.Type), e.Confidence, e.Explanation}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: writing edge row: %w", err)
		}
	}
	return nil
}

func writeStatsSheet(f *excelize.File, g *graph.Graph) error {
	const sheet = "Statistics"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export: creating sheet %s: %w", sheet, err)
	}
	stats := g.Statistics()
	rows := [][]any{
		{"Total nodes", stats.TotalNodes},
		{"Total edges", stats.TotalEdges},
		{"Avg connections per node", stats.AvgConnectionsPerNode},
	}
	types := make([]string, 0, len(stats.NodesByType))
	for t := range stats.NodesByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		rows = append(rows, []any{fmt.Sprintf("Nodes of type %s", t), stats.NodesByType[t]})
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: writing stats row: %w", err)
		}
	}
	return nil
}

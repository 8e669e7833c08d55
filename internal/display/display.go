// Package display renders import progress and summaries for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vdavid/mailvault/internal/importer"
	"github.com/vdavid/mailvault/internal/models"
)

// Styles
var (
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	Warn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
)

// Console prints import progress. It implements importer.Reporter.
type Console struct {
	out io.Writer
}

var _ importer.Reporter = (*Console)(nil)

// NewConsole writes progress to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// Start prints the run header.
func (c *Console) Start(accountEmail, backend string) {
	c.printf("%s %s\n", Success.Render("Starting import for "+accountEmail), Dim.Render("(backend="+backend+")"))
}

func (c *Console) FoldersSelected(folders []string) {
	c.printf("%s %s\n", Muted.Render("Folders:"), strings.Join(folders, ", "))
}

func (c *Console) FolderStarted(folder string) {
	c.printf("%s\n", Bold.Render("== Folder: "+folder+" =="))
}

func (c *Console) FolderSkipped(folder string, err error) {
	c.printf("%s\n", Warn.Render(fmt.Sprintf("Skipping folder '%s' (not selectable): %v", folder, err)))
}

func (c *Console) NoNewMessages(string) {
	c.printf("%s\n", Dim.Render("No new messages."))
}

func (c *Console) BatchDone(_ string, processedInFolder int, checkpoint uint32) {
	c.printf("Batch done. checkpoint last_uid=%d, folder_count=%d\n", checkpoint, processedInFolder)
}

func (c *Console) LimitReached(string) {
	c.printf("%s\n", Dim.Render("Reached --max limit for folder."))
}

func (c *Console) Finished(result *importer.Result) {
	c.printf("%s %s\n",
		Success.Render(fmt.Sprintf("Import finished. Total processed: %d", result.Processed)),
		Dim.Render(fmt.Sprintf("(new=%d duplicates=%d gaps=%d skipped folders=%d)",
			result.Created, result.Duplicates, result.Gaps, len(result.SkippedFolders))))
}

// Failed prints a fatal error line.
func (c *Console) Failed(err error, processed int) {
	c.printf("%s %v\n", ErrStyle.Render("✗"), err)
	c.printf("Total processed: %d\n", processed)
}

// Stats prints a store summary and its checkpoints.
func Stats(out io.Writer, stats *models.Stats, checkpoints []*models.Checkpoint) {
	_, _ = fmt.Fprintln(out, Bold.Render("Archive statistics"))
	rows := []struct {
		label string
		value int
	}{
		{"Accounts", stats.Accounts},
		{"Mailboxes", stats.Mailboxes},
		{"Messages", stats.Messages},
		{"Placements", stats.Placements},
		{"Persons", stats.Persons},
		{"Threads", stats.Threads},
		{"Attachments", stats.Attachments},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(out, "  %-12s %8d\n", r.label, r.value)
	}

	if len(checkpoints) == 0 {
		return
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, Bold.Render("Checkpoints"))
	for _, cp := range checkpoints {
		_, _ = fmt.Fprintf(out, "  %-28s %-20s %8d  %s\n",
			cp.AccountEmail, cp.MailboxName, cp.LastUID,
			Dim.Render(cp.UpdatedAt.UTC().Format("2006-01-02 15:04")))
	}
}

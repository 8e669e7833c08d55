package importer

import "log"

// Reporter receives progress events during a run.
type Reporter interface {
	FoldersSelected(folders []string)
	FolderStarted(folder string)
	FolderSkipped(folder string, err error)
	NoNewMessages(folder string)
	BatchDone(folder string, processedInFolder int, checkpoint uint32)
	LimitReached(folder string)
	Finished(result *Result)
}

// LogReporter writes progress through the standard logger.
type LogReporter struct{}

func (LogReporter) FoldersSelected(folders []string) {
	log.Printf("Folders: %v", folders)
}

func (LogReporter) FolderStarted(folder string) {
	log.Printf("Importing folder %s", folder)
}

func (LogReporter) FolderSkipped(folder string, err error) {
	log.Printf("Warning: skipping folder %s: %v", folder, err)
}

func (LogReporter) NoNewMessages(folder string) {
	log.Printf("No new messages in %s", folder)
}

func (LogReporter) BatchDone(folder string, processedInFolder int, checkpoint uint32) {
	log.Printf("Batch done in %s: checkpoint=%d, folder_count=%d", folder, checkpoint, processedInFolder)
}

func (LogReporter) LimitReached(folder string) {
	log.Printf("Reached per-folder limit in %s", folder)
}

func (LogReporter) Finished(result *Result) {
	log.Printf("Import finished. Total processed: %d", result.Processed)
}

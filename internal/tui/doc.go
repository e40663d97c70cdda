// Package tui provides the read-only dashboard for pawgate's watch command.
//
// It shows every item the watcher has queued, the one-line outcome of each
// finished review and a short tail of log output. Users can only quit with
// 'q' or Ctrl+C.
//
// Usage:
//
//	program, app := tui.NewWatchProgram(inboxDir, cancel)
//	go program.Run()
//
//	program.Send(tui.ItemUpdateMsg{Manifest: path, Topic: "grapes", Status: tui.StatusReviewing})
//	program.Send(tui.LogMsg{Timestamp: time.Now(), Line: "review verdict"})
//	program.Send(tui.DoneMsg{})
package tui

package main

import (
	"voxnote/pipeline"
	"voxnote/recorder"
)

// uiSink forwards recorder and pipeline events into the Bubble Tea
// program. Events only fire once the user starts recording, which is
// after the TUI is up, so sends never race program startup.
type uiSink struct {
	app *app
}

func (s *uiSink) RecordingStart() { s.app.send(RecordingStartMsg{}) }

func (s *uiSink) RecordingStop() { s.app.send(RecordingStopMsg{}) }

func (s *uiSink) RecordingTick(sec float64) { s.app.send(RecordingTickMsg{Seconds: sec}) }

func (s *uiSink) AudioLevel(level float64) { s.app.send(AudioLevelMsg{Level: level}) }

func (s *uiSink) SegmentCut(seg recorder.Segment) { s.app.send(SegmentCutMsg{Seq: seg.Seq}) }

func (s *uiSink) QueueDepth(n int) { s.app.send(QueueDepthMsg{Depth: n}) }

func (s *uiSink) NoteAdded(n pipeline.Note) { s.app.send(NoteAddedMsg{Note: n}) }

package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan       EventType = "plan"
	EventTypeWave       EventType = "wave"
	EventTypeStep       EventType = "step"
	EventTypeStepResult EventType = "step_result"
	EventTypeCapability EventType = "capability"
	EventTypeLLM        EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	PlanID    string    `json:"plan_id,omitempty"`
	StepID    string    `json:"step_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPlan(planID, goal, complexity string, steps int) {
	l.Log(Event{
		Type:   EventTypePlan,
		PlanID: planID,
		Data: map[string]any{
			"goal":       goal,
			"complexity": complexity,
			"steps":      steps,
		},
	})
}

func (l *Logger) LogWave(planID string, wave int, stepIDs []string) {
	l.Log(Event{
		Type:   EventTypeWave,
		PlanID: planID,
		Data: map[string]any{
			"wave":  wave,
			"steps": stepIDs,
		},
	})
}

func (l *Logger) LogStep(planID, stepID, capability, status string) {
	l.Log(Event{
		Type:   EventTypeStep,
		PlanID: planID,
		StepID: stepID,
		Data: map[string]string{
			"capability": capability,
			"status":     status,
		},
	})
}

func (l *Logger) LogStepResult(planID, stepID, status, detail string) {
	l.Log(Event{
		Type:   EventTypeStepResult,
		PlanID: planID,
		StepID: stepID,
		Data: map[string]string{
			"status": status,
			"detail": detail,
		},
	})
}

func (l *Logger) LogCapability(name string) {
	l.Log(Event{
		Type: EventTypeCapability,
		Data: map[string]string{"name": name},
	})
}

func (l *Logger) LogLLM(planID, stepID string, prompt any, response string) {
	l.Log(Event{
		Type:   EventTypeLLM,
		PlanID: planID,
		StepID: stepID,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
		},
	})
}

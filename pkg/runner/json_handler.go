package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Himanshu040604/PregelFlow"
)

// JSONHandler implements IOHandler over JSON Lines for headless callers.
//
// Each input line is either a JSON string, an object with a "topic" key, or
// plain text. Results and system messages are written as one JSON object
// per line.
type JSONHandler struct {
	Reader       *bufio.Reader
	Encoder      *json.Encoder
	MaxInputSize int

	mu sync.Mutex
}

// TurnOutput is the line written for a finished turn.
type TurnOutput struct {
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id"`
	Seq       int64  `json:"seq"`
	Status    string `json:"status"`
	Report    string `json:"report"`
}

// SystemMessage is the line written for a meta-message.
type SystemMessage struct {
	System string `json:"system"`
}

type jsonInput struct {
	Topic string `json:"topic"`
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

// Input reads one line. It does not observe ctx while blocked on the read.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := h.Reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	var obj jsonInput
	switch {
	case json.Unmarshal([]byte(text), &val) == nil:
	case json.Unmarshal([]byte(text), &obj) == nil:
		val = obj.Topic
	default:
		val = text
	}
	return SanitizeInput(strings.TrimSpace(val), h.MaxInputSize)
}

func (h *JSONHandler) Output(ctx context.Context, res *pregelflow.Result) error {
	cp := res.Checkpoint
	return h.encode(TurnOutput{
		SessionID: cp.SessionID,
		RunID:     cp.RunID,
		Seq:       cp.Sequence,
		Status:    string(cp.Status),
		Report:    res.Output,
	})
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.encode(SystemMessage{System: strings.TrimSpace(msg)})
}

func (h *JSONHandler) encode(v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(v)
}

package handlers

import (
	"net/http"
	"strings"
)

type Flash struct {
	Kind string // "ok" or "error"
	Text string
}

var okText = map[string]string{
	"restarted": "Started a new registration.",
}

var errText = map[string]string{
	"submit_failed":  "Registration could not be saved. Please try again.",
	"closed":         "Registration is closed.",
	"invalid_code":   "Invalid or missing code.",
	"code_not_found": "Code not found.",
}

// MakeFlash reads ?error= / ?ok= and falls back to the handler's own messages.
// Unknown keys are not echoed back.
func MakeFlash(r *http.Request, errStr, msgStr string) *Flash {
	q := r.URL.Query()

	if key := strings.ToLower(strings.TrimSpace(q.Get("error"))); key != "" {
		if t, ok := errText[key]; ok {
			return &Flash{Kind: "error", Text: t}
		}
	}
	if key := strings.ToLower(strings.TrimSpace(q.Get("ok"))); key != "" {
		if t, ok := okText[key]; ok {
			return &Flash{Kind: "ok", Text: t}
		}
	}

	if errStr != "" {
		return &Flash{Kind: "error", Text: errStr}
	}
	if msgStr != "" {
		return &Flash{Kind: "ok", Text: msgStr}
	}
	return nil
}

//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/editor"
	"github.com/mythic3d/particle-drawer/internal/skill"
	"github.com/mythic3d/particle-drawer/internal/state"
)

var ed *editor.Editor

func main() {
	ed = editor.New(1280, 720)
	ed.Load(document.NewEmptyProject(""))

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	api.Set("apply", js.FuncOf(apply))
	api.Set("loadProject", js.FuncOf(loadProject))
	api.Set("loadSample", js.FuncOf(loadSample))
	api.Set("markSaved", js.FuncOf(markSaved))
	api.Set("onChange", js.FuncOf(onChange))

	// --- Queries (frontend ← editor) ---
	api.Set("frame", js.FuncOf(frame))
	api.Set("getProject", js.FuncOf(getProject))
	api.Set("generateSkill", js.FuncOf(generateSkill))

	js.Global().Set("particleEditor", api)
	js.Global().Set("particleEditorReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) js.Value {
	return js.ValueOf(map[string]interface{}{"error": err.Error(), "code": editor.ErrorCode(err)})
}

// apply takes a message envelope as JSON and returns the reply envelope, if any.
func apply(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing message JSON"})
	}

	var msg editor.Message
	if err := json.Unmarshal([]byte(args[0].String()), &msg); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error(), "code": editor.CodeBadRequest})
	}

	reply, err := ed.Apply(&msg)
	if err != nil {
		return errorResult(err)
	}
	if reply == nil {
		return js.ValueOf(map[string]interface{}{"ok": true})
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "reply": string(data)})
}

func loadProject(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing project JSON"})
	}

	p, err := document.Parse([]byte(args[0].String()))
	if err != nil {
		return errorResult(err)
	}
	ed.Load(p)
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSample(this js.Value, args []js.Value) interface{} {
	ed.Load(document.NewSampleProject())
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// markSaved clears the unsaved flag after the page stored the project itself.
func markSaved(this js.Value, args []js.Value) interface{} {
	ed.Store().MarkSaved()
	return nil
}

// onChange registers a callback invoked with no arguments after every state change.
func onChange(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	cb := args[0]
	ed.Store().Subscribe(func(state.State) { cb.Invoke() })
	return nil
}

func frame(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(ed.Frame())
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func getProject(this js.Value, args []js.Value) interface{} {
	data, err := ed.Project().Marshal()
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func generateSkill(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(skill.Generate(ed.Store().GetState()))
}

package sandbox

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap/zapcore"
)

// allowedGlobals survive realm hardening. Every other intrinsic on the
// global object is deleted before admitted code runs.
var allowedGlobals = map[string]bool{
	"undefined": true, "NaN": true, "Infinity": true,
	"Object": true, "Array": true, "String": true, "Number": true, "Boolean": true,
	"Symbol": true, "BigInt": true, "Math": true, "JSON": true, "Date": true, "RegExp": true,
	"Map": true, "Set": true, "WeakMap": true, "WeakSet": true, "Promise": true,
	"Error": true, "TypeError": true, "RangeError": true, "SyntaxError": true,
	"ReferenceError": true, "URIError": true,
	"parseInt": true, "parseFloat": true, "isNaN": true, "isFinite": true,
	"encodeURI": true, "encodeURIComponent": true, "decodeURI": true, "decodeURIComponent": true,
	"ArrayBuffer": true, "DataView": true,
	"Int8Array": true, "Uint8Array": true, "Uint8ClampedArray": true,
	"Int16Array": true, "Uint16Array": true, "Int32Array": true, "Uint32Array": true,
	"Float32Array": true, "Float64Array": true,
}

// shadowed names are rebound to undefined around every execution.
var shadowed = []string{
	"eval", "Function", "document", "window", "localStorage", "sessionStorage",
	"indexedDB", "fetch", "XMLHttpRequest", "WebSocket", "importScripts",
	"globalThis", "self", "parent", "top", "__proto__", "constructor", "prototype",
}

// sealConstructors replaces the constructor of every function prototype so
// that (function(){}).constructor cannot compile source text.
const sealConstructors = `(function () {
	var blocked = function () { throw new TypeError("dynamic code generation is disabled"); };
	var protos = [Function.prototype];
	try { protos.push(Object.getPrototypeOf(function* () {})); } catch (e) {}
	try { protos.push(Object.getPrototypeOf(async function () {})); } catch (e) {}
	for (var i = 0; i < protos.length; i++) {
		try {
			Object.defineProperty(protos[i], "constructor", { value: blocked, writable: false, configurable: false });
		} catch (e) {}
	}
	return Object.getOwnPropertyNames(globalThis);
})()`

// wrap places code in a sloppy outer frame whose parameters shadow the
// escape hatches, around a strict inner frame that runs the code and
// hands back a top-level game binding if one was declared.
func wrap(code string) string {
	var b strings.Builder
	b.WriteString("(function (")
	b.WriteString(strings.Join(shadowed, ", "))
	b.WriteString(") {\nreturn (function () {\n\"use strict\";\n")
	b.WriteString(code)
	b.WriteString("\n;return typeof game === \"undefined\" ? undefined : game;\n}).call(undefined);\n})();")
	return b.String()
}

// harden strips the global object down to the allowlist.
func harden(vm *goja.Runtime) error {
	names, err := vm.RunString(sealConstructors)
	if err != nil {
		return fmt.Errorf("seal constructors: %w", err)
	}

	global := vm.GlobalObject()
	list, ok := names.Export().([]interface{})
	if !ok {
		return errors.New("enumerate globals: unexpected result")
	}

	for _, raw := range list {
		name, ok := raw.(string)
		if !ok || allowedGlobals[name] {
			continue
		}
		if err := global.Delete(name); err != nil {
			if err := global.Set(name, goja.Undefined()); err != nil {
				return fmt.Errorf("remove global %s: %w", name, err)
			}
		}
	}
	return nil
}

// installConsole routes console.* to the session sink.
func (s *Session) installConsole() error {
	console := s.vm.NewObject()
	levels := map[string]zapcore.Level{
		"log":   zapcore.InfoLevel,
		"info":  zapcore.InfoLevel,
		"debug": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for name, level := range levels {
		if err := console.Set(name, s.makeConsoleFunc(level)); err != nil {
			return err
		}
	}
	return s.vm.Set("console", console)
}

func (s *Session) makeConsoleFunc(level zapcore.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if s.cfg.DisableConsole {
			return goja.Undefined()
		}
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		s.sink.Log(level, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// installStage exposes the render surface through a narrow API.
func (s *Session) installStage() error {
	stage := s.vm.NewObject()

	err := stage.Set("createCanvas", func(call goja.FunctionCall) goja.Value {
		width := int(call.Argument(0).ToInteger())
		height := int(call.Argument(1).ToInteger())
		if width <= 0 || height <= 0 || width > 8192 || height > 8192 {
			panic(s.vm.NewTypeError("canvas size out of range"))
		}
		return s.canvasObject(s.dom.CreateCanvas(width, height))
	})
	if err != nil {
		return err
	}

	err = stage.Set("log", func(call goja.FunctionCall) goja.Value {
		s.sink.Log(zapcore.InfoLevel, call.Argument(0).String())
		return goja.Undefined()
	})
	if err != nil {
		return err
	}

	return s.vm.Set("stage", stage)
}

// dataKey limits canvas.setData to inert data-* attributes.
var dataKey = regexp.MustCompile(`^[a-z][a-z0-9-]{0,31}$`)

const maxDataValue = 256

func (s *Session) canvasObject(elem *Element) goja.Value {
	canvas := s.vm.NewObject()
	_ = canvas.Set("id", elem.ID)
	_ = canvas.Set("width", elem.Canvas.Width)
	_ = canvas.Set("height", elem.Canvas.Height)

	_ = canvas.Set("setData", func(call goja.FunctionCall) goja.Value {
		key, value := call.Argument(0).String(), call.Argument(1).String()
		if !dataKey.MatchString(key) || len(value) > maxDataValue {
			panic(s.vm.NewTypeError("invalid data attribute"))
		}
		s.dom.SetData(elem, key, value)
		return goja.Undefined()
	})

	ctx := s.contextObject(elem.Canvas)
	_ = canvas.Set("getContext", func(call goja.FunctionCall) goja.Value {
		if call.Argument(0).String() != "2d" {
			return goja.Null()
		}
		return ctx
	})
	return canvas
}

// drawCalls are the recorded 2D context methods.
var drawCalls = []string{
	"fillRect", "strokeRect", "clearRect", "beginPath", "closePath",
	"moveTo", "lineTo", "arc", "fill", "stroke", "save", "restore",
	"translate", "rotate", "scale",
}

func (s *Session) contextObject(c *Canvas) *goja.Object {
	ctx := s.vm.NewObject()
	_ = ctx.Set("fillStyle", "#000000")
	_ = ctx.Set("strokeStyle", "#000000")
	_ = ctx.Set("font", "10px sans-serif")

	for _, name := range drawCalls {
		name := name
		_ = ctx.Set(name, func(call goja.FunctionCall) goja.Value {
			op := DrawOp{Name: name, Style: ctx.Get("fillStyle").String()}
			for _, arg := range call.Arguments {
				op.Args = append(op.Args, arg.ToFloat())
			}
			c.record(op)
			return goja.Undefined()
		})
	}

	_ = ctx.Set("fillText", func(call goja.FunctionCall) goja.Value {
		c.record(DrawOp{
			Name:  "fillText",
			Text:  call.Argument(0).String(),
			Args:  []float64{call.Argument(1).ToFloat(), call.Argument(2).ToFloat()},
			Style: ctx.Get("fillStyle").String(),
		})
		return goja.Undefined()
	})
	return ctx
}

// exceptionMessage extracts the thrown value's text from goja errors.
func exceptionMessage(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if v := exc.Value(); v != nil {
			return v.String()
		}
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Sprint(interrupted.Value())
	}
	return err.Error()
}

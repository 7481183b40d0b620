// stacktrace.go extracts stack frames from errors and from the capture site.

package xrayradar

import (
	"errors"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// maxCapturedFrames bounds the call-site stack walk.
const maxCapturedFrames = 100

// thisPackage is the import path prefix of frames belonging to the client itself.
var thisPackage = reflect.TypeOf(Event{}).PkgPath()

// stackTracer is satisfied by errors created with github.com/pkg/errors.
type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// extractExceptions walks the error chain and returns one Exception per
// link, innermost cause first. The outermost exception carries the stack:
// the deepest pkg/errors stack in the chain if any, otherwise callerPCs.
func extractExceptions(err error, callerPCs []uintptr) []Exception {
	var chain []error
	for e := err; e != nil && len(chain) < 16; e = errors.Unwrap(e) {
		chain = append(chain, e)
		if isNilError(e) {
			break
		}
	}

	values := make([]Exception, len(chain))
	for i, e := range chain {
		value := nilErrorValue
		if !isNilError(e) {
			value = e.Error()
		}
		values[len(chain)-1-i] = Exception{
			Type:   errorTypeName(e),
			Value:  value,
			Module: errorModule(e),
		}
	}

	var frames []Frame
	for i := len(chain) - 1; i >= 0; i-- {
		if isNilError(chain[i]) {
			continue
		}
		if st, ok := chain[i].(stackTracer); ok {
			frames = framesFromPkgErrors(st.StackTrace())
			break
		}
	}
	if frames == nil {
		frames = framesFromPCs(callerPCs)
	}
	if len(frames) > 0 && len(values) > 0 {
		values[len(values)-1].Stacktrace = &Stacktrace{Frames: frames}
	}
	return values
}

// nilErrorValue stands in for the message of a typed nil error.
const nilErrorValue = "<nil>"

// isNilError reports whether err is a non-nil interface holding a nil
// pointer, map, slice, func, or channel. Calling its methods may panic.
func isNilError(err error) bool {
	v := reflect.ValueOf(err)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func errorTypeName(err error) string {
	return reflect.TypeOf(err).String()
}

func errorModule(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.PkgPath()
}

// callerPCs records the current goroutine's stack, skipping skip frames
// above the caller of callerPCs.
func callerPCs(skip int) []uintptr {
	pcs := make([]uintptr, maxCapturedFrames)
	n := runtime.Callers(skip+2, pcs)
	return pcs[:n]
}

// framesFromPCs converts program counters to frames, outermost caller first,
// dropping frames that belong to this package.
func framesFromPCs(pcs []uintptr) []Frame {
	if len(pcs) == 0 {
		return nil
	}
	iter := runtime.CallersFrames(pcs)
	var frames []Frame
	for {
		f, more := iter.Next()
		if f.Function != "" && !isClientFrame(f.Function) {
			frames = append(frames, newFrame(f.Function, f.File, f.Line))
		}
		if !more {
			break
		}
	}
	reverseFrames(frames)
	return frames
}

// framesFromPkgErrors converts a pkg/errors stack (innermost first) to
// frames, outermost caller first.
func framesFromPkgErrors(st pkgerrors.StackTrace) []Frame {
	frames := make([]Frame, 0, len(st))
	for _, f := range st {
		pc := uintptr(f) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line := fn.FileLine(pc)
		frames = append(frames, newFrame(fn.Name(), file, line))
	}
	reverseFrames(frames)
	return frames
}

func newFrame(function, file string, line int) Frame {
	module, name := SplitFunctionName(function)
	return Frame{
		Function: name,
		Module:   module,
		Filename: filepath.Base(file),
		AbsPath:  file,
		Lineno:   line,
		InApp:    isInApp(module),
	}
}

// SplitFunctionName splits a fully qualified function name such as
// "github.com/a/b.(*T).Method" into "github.com/a/b" and "(*T).Method".
// Names without a package qualifier return an empty module.
func SplitFunctionName(fn string) (module, name string) {
	lastSlash := strings.LastIndex(fn, "/")
	dot := strings.Index(fn[lastSlash+1:], ".")
	if dot < 0 {
		return "", fn
	}
	dot += lastSlash + 1
	return fn[:dot], fn[dot+1:]
}

func isClientFrame(function string) bool {
	if !strings.HasPrefix(function, thisPackage) {
		return false
	}
	rest := function[len(thisPackage):]
	return strings.HasPrefix(rest, ".")
}

func isInApp(module string) bool {
	if module == "" || module == "main" {
		return true
	}
	if module == "runtime" || strings.HasPrefix(module, "runtime/") {
		return false
	}
	// Standard library packages have no dot in their first path element.
	first, _, _ := strings.Cut(module, "/")
	return strings.Contains(first, ".")
}

func reverseFrames(frames []Frame) {
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
}

package log

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// formatter renders a logrus entry through a mini-template pattern
// supporting %time, %level, %field, %msg, %caller, %func, %goroutine.
type formatter struct {
	pattern string
	time string
}

func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	output := f.pattern
	output = strings.Replace(output, "%time", entry.Time.Format(f.time), 1)
	output = strings.Replace(output, "%level", entry.Level.String(), 1)
	output = strings.Replace(output, "%field", buildFields(entry), 1)
	output = strings.Replace(output, "%msg", entry.Message, 1)
	output = strings.Replace(output, "%caller", getCaller(entry), 1)
	output = strings.Replace(output, "%func", getFunc(entry), 1)
	output = strings.Replace(output, "%goroutine", getGoroutineID(), 1)
	return []byte(output), nil
}

// getCaller renders "package/file:line" for entry's call site.
func getCaller(entry *logrus.Entry) string {
	if entry.HasCaller() {
		file := baseName(entry.Caller.File)
		pkg := ""
		if entry.Caller.Function != "" {
			funcParts := strings.Split(entry.Caller.Function, ".")
			if len(funcParts) > 1 {
				pkgParts := strings.Split(funcParts[0], "/")
				pkg = pkgParts[len(pkgParts)-1]
			}
		}
		return fmt.Sprintf("%s/%s:%d", pkg, file, entry.Caller.Line)
	}
	// logrus.SetReportCaller was never enabled; fall back to walking the
	// stack past logrus's own frames.
	_, file, line, ok := runtime.Caller(8)
	if ok {
		return fmt.Sprintf("unknown/%s:%d", baseName(file), line)
	}
	return "unknown"
}

func baseName(path string) string {
	if i := strings.LastIndex(path, "/"); i != -1 && i+1 < len(path) {
		return path[i+1:]
	}
	return path
}

// getFunc returns just the method/function name, dropping its package path.
func getFunc(entry *logrus.Entry) string {
	if entry.HasCaller() {
		return lastSegment(entry.Caller.Function)
	}
	pc, _, _, ok := runtime.Caller(8)
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			return lastSegment(fn.Name())
		}
	}
	return "unknown"
}

func lastSegment(funcName string) string {
	if i := strings.LastIndex(funcName, "."); i != -1 && i+1 < len(funcName) {
		return funcName[i+1:]
	}
	return funcName
}

func getGoroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	stack := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if fields := strings.Fields(stack); len(fields) > 0 {
		return fields[0]
	}
	return "unknown"
}

func buildFields(entry *logrus.Entry) string {
	var fields []string
	for key, val := range entry.Data {
		stringVal, ok := val.(string)
		if !ok {
			stringVal = fmt.Sprint(val)
		}
		fields = append(fields, key+"="+stringVal)
	}
	return strings.Join(fields, ",")
}

package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/termenv"
)

// Formatter is the interface for output formatting
type Formatter interface {
	Print(data any) error
	PrintList(items any, columns []Column) error
	PrintError(err error)
	PrintHint(msg string)
}

// Column defines a column for table/list output
type Column struct {
	Name  string // Display name
	Key   string // Struct field name or map key
	Width int    // Width for rich mode (0 = auto)
}

// New creates a formatter for the specified mode writing to stdout/stderr
func New(mode string) Formatter {
	return NewWithWriters(mode, os.Stdout, os.Stderr)
}

// NewWithWriters creates a formatter for the specified mode. Data goes to out,
// errors and hints to errOut.
func NewWithWriters(mode string, out, errOut io.Writer) Formatter {
	switch mode {
	case "json":
		return &jsonFormatter{out: out, errOut: errOut}
	case "csv":
		return &csvFormatter{out: out, errOut: errOut}
	case "rich":
		return &richFormatter{out: out, errOut: errOut, profile: termenv.ColorProfile()}
	default:
		return &plainFormatter{out: out, errOut: errOut}
	}
}

// jsonFormatter outputs JSON
type jsonFormatter struct {
	out, errOut io.Writer
}

func (f *jsonFormatter) Print(data any) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (f *jsonFormatter) PrintList(items any, columns []Column) error {
	v := reflect.Indirect(reflect.ValueOf(items))

	count := 0
	if v.Kind() == reflect.Slice {
		count = v.Len()
	}

	return f.Print(map[string]any{
		"data":  items,
		"count": count,
	})
}

func (f *jsonFormatter) PrintError(err error) {
	enc := json.NewEncoder(f.errOut)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]string{"error": err.Error()})
}

func (f *jsonFormatter) PrintHint(msg string) {
	// Hints would corrupt machine-readable stderr
}

// plainFormatter outputs tab-separated values
type plainFormatter struct {
	out, errOut io.Writer
}

func (f *plainFormatter) Print(data any) error {
	v := reflect.Indirect(reflect.ValueOf(data))

	if v.Kind() == reflect.Struct {
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			fmt.Fprintf(f.out, "%s\t%v\n", t.Field(i).Name, v.Field(i).Interface())
		}
		return nil
	}

	fmt.Fprintf(f.out, "%v\n", data)
	return nil
}

func (f *plainFormatter) PrintList(items any, columns []Column) error {
	rows, err := extractRows(items, columns)
	if err != nil {
		return err
	}

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Name
	}
	fmt.Fprintln(f.out, strings.Join(headers, "\t"))

	for _, row := range rows {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = row[col.Key]
		}
		fmt.Fprintln(f.out, strings.Join(values, "\t"))
	}

	return nil
}

func (f *plainFormatter) PrintError(err error) {
	fmt.Fprintf(f.errOut, "error: %v\n", err)
}

func (f *plainFormatter) PrintHint(msg string) {
	fmt.Fprintf(f.errOut, "hint: %v\n", msg)
}

// csvFormatter outputs RFC 4180 CSV with a header row
type csvFormatter struct {
	out, errOut io.Writer
}

func (f *csvFormatter) Print(data any) error {
	w := csv.NewWriter(f.out)
	v := reflect.Indirect(reflect.ValueOf(data))

	if v.Kind() == reflect.Struct {
		t := v.Type()
		_ = w.Write([]string{"field", "value"})
		for i := 0; i < v.NumField(); i++ {
			_ = w.Write([]string{t.Field(i).Name, fmt.Sprintf("%v", v.Field(i).Interface())})
		}
	} else {
		_ = w.Write([]string{fmt.Sprintf("%v", data)})
	}

	w.Flush()
	return w.Error()
}

func (f *csvFormatter) PrintList(items any, columns []Column) error {
	rows, err := extractRows(items, columns)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f.out)
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Name
	}
	_ = w.Write(headers)

	for _, row := range rows {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = row[col.Key]
		}
		_ = w.Write(values)
	}

	w.Flush()
	return w.Error()
}

func (f *csvFormatter) PrintError(err error) {
	fmt.Fprintf(f.errOut, "error: %v\n", err)
}

func (f *csvFormatter) PrintHint(msg string) {
	fmt.Fprintf(f.errOut, "hint: %v\n", msg)
}

// richFormatter outputs styled content for terminal
type richFormatter struct {
	out, errOut io.Writer
	profile     termenv.Profile
}

func (f *richFormatter) Print(data any) error {
	v := reflect.Indirect(reflect.ValueOf(data))

	if v.Kind() == reflect.Struct {
		keyStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
		valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			fmt.Fprintf(f.out, "%s: %s\n",
				f.render(keyStyle, t.Field(i).Name),
				f.render(valueStyle, fmt.Sprintf("%v", v.Field(i).Interface())),
			)
		}
		return nil
	}

	fmt.Fprintf(f.out, "%v\n", data)
	return nil
}

func (f *richFormatter) PrintList(items any, columns []Column) error {
	rows, err := extractRows(items, columns)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(f.errOut, f.render(lipgloss.NewStyle().Faint(true), "(no results)"))
		return nil
	}

	RenderTable(f.out, columns, rows)
	return nil
}

func (f *richFormatter) PrintError(err error) {
	errorStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("9"))

	fmt.Fprintln(f.errOut, f.render(errorStyle, "error: "+err.Error()))
}

func (f *richFormatter) PrintHint(msg string) {
	hintStyle := lipgloss.NewStyle().
		Faint(true).
		Foreground(lipgloss.Color("8"))

	fmt.Fprintln(f.errOut, f.render(hintStyle, "hint: "+msg))
}

// render applies st unless the terminal cannot show styles.
func (f *richFormatter) render(st lipgloss.Style, s string) string {
	if f.profile == termenv.Ascii {
		return s
	}
	return st.Render(s)
}

// extractRows reads the column keys out of a slice of structs or maps.
func extractRows(items any, columns []Column) ([]map[string]string, error) {
	v := reflect.Indirect(reflect.ValueOf(items))
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("PrintList requires a slice")
	}

	rows := make([]map[string]string, v.Len())
	for i := 0; i < v.Len(); i++ {
		item := reflect.Indirect(v.Index(i))

		row := make(map[string]string, len(columns))
		for _, col := range columns {
			var field reflect.Value
			switch item.Kind() {
			case reflect.Map:
				field = item.MapIndex(reflect.ValueOf(col.Key))
			case reflect.Struct:
				field = item.FieldByName(col.Key)
			}
			if field.IsValid() {
				row[col.Key] = fmt.Sprintf("%v", field.Interface())
			}
		}
		rows[i] = row
	}
	return rows, nil
}

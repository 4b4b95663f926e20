package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// Formatter 日志格式化器
type Formatter interface {
	Format(buffer *bytes.Buffer, entry *Entry)
}

// bufferPool 复用格式化缓冲区
var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// TextFormatter 文本格式化器
type TextFormatter struct {
	IncludeTimestamp bool
	TimestampFormat  string
}

// NewTextFormatter 创建文本格式化器
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
	}
}

// Format 格式化日志
func (f *TextFormatter) Format(buffer *bytes.Buffer, entry *Entry) {
	if f.IncludeTimestamp {
		buffer.WriteString(entry.Time.Format(f.TimestampFormat))
		buffer.WriteByte(' ')
	}
	buffer.WriteString(entry.Level.String())
	if entry.Category != "" {
		buffer.WriteString(" [")
		buffer.WriteString(entry.Category)
		buffer.WriteString("]")
	}
	buffer.WriteByte(' ')
	buffer.WriteString(entry.Message)
	if len(entry.Fields) > 0 {
		buffer.WriteString(" {")
		for i, field := range entry.Fields {
			if i > 0 {
				buffer.WriteString(", ")
			}
			buffer.WriteString(field.Key)
			buffer.WriteByte('=')
			fmt.Fprintf(buffer, "%v", field.Value)
		}
		buffer.WriteByte('}')
	}
	buffer.WriteByte('\n')
}

// JsonFormatter JSON 格式化器
type JsonFormatter struct {
	TimestampFormat string
}

// NewJsonFormatter 创建 JSON 格式化器
func NewJsonFormatter() *JsonFormatter {
	return &JsonFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
}

// Format 格式化日志
func (f *JsonFormatter) Format(buffer *bytes.Buffer, entry *Entry) {
	record := make(map[string]any, len(entry.Fields)+4)
	record["time"] = entry.Time.Format(f.TimestampFormat)
	record["level"] = entry.Level.String()
	record["msg"] = entry.Message
	if entry.Category != "" {
		record["category"] = entry.Category
	}
	for _, field := range entry.Fields {
		record[field.Key] = field.Value
	}
	data, err := json.Marshal(record)
	if err != nil {
		fmt.Fprintf(buffer, `{"level":"ERROR","msg":"日志序列化失败: %v"}`, err)
	} else {
		buffer.Write(data)
	}
	buffer.WriteByte('\n')
}

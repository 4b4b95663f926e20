package logging

import (
	"io"
	"os"
	"sync"
)

// Builder 日志构建器
type Builder struct {
	mu           sync.Mutex
	sinks        []Sink
	minimumLevel Level
}

// NewBuilder 创建日志构建器
func NewBuilder() *Builder {
	return &Builder{minimumLevel: LevelInfo}
}

// SetMinimumLevel 设置最小日志级别
func (b *Builder) SetMinimumLevel(level Level) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

// AddSink 添加输出端
func (b *Builder) AddSink(sink Sink) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
	return b
}

// AddConsole 添加文本格式的标准输出端
func (b *Builder) AddConsole() *Builder {
	return b.AddSink(NewWriterSink(os.Stdout, NewTextFormatter()))
}

// AddJsonConsole 添加 JSON 格式的标准输出端
func (b *Builder) AddJsonConsole() *Builder {
	return b.AddSink(NewWriterSink(os.Stdout, NewJsonFormatter()))
}

// AddWriter 添加任意 writer 输出端
func (b *Builder) AddWriter(w io.Writer, formatter Formatter) *Builder {
	return b.AddSink(NewWriterSink(w, formatter))
}

// AddAsyncWriter 添加异步 writer 输出端
func (b *Builder) AddAsyncWriter(w io.Writer, formatter Formatter, bufferSize int) *Builder {
	return b.AddSink(NewAsyncSink(NewWriterSink(w, formatter), bufferSize))
}

// Build 构建日志记录器；没有任何输出端时退化为丢弃实现
func (b *Builder) Build() Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sinks) == 0 {
		return NewNopLogger()
	}
	return NewLogger(b.minimumLevel, b.sinks...)
}

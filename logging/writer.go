package logging

import (
	"bytes"
	"io"
	"sync"
)

// writerSink 同步输出端：格式化后直接写入
type writerSink struct {
	mu        sync.Mutex
	writer    io.Writer
	formatter Formatter
}

// NewWriterSink 创建同步输出端
func NewWriterSink(writer io.Writer, formatter Formatter) Sink {
	return &writerSink{writer: writer, formatter: formatter}
}

func (s *writerSink) Write(entry *Entry) {
	buffer := bufferPool.Get().(*bytes.Buffer)
	buffer.Reset()
	s.formatter.Format(buffer, entry)
	s.mu.Lock()
	s.writer.Write(buffer.Bytes())
	s.mu.Unlock()
	bufferPool.Put(buffer)
}

// AsyncSink 异步输出端：条目入队后由后台协程写出。
// 队列满时退化为阻塞写，不丢日志。
type AsyncSink struct {
	inner     Sink
	entryCh   chan *Entry
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAsyncSink 创建异步输出端
func NewAsyncSink(inner Sink, bufferSize int) *AsyncSink {
	s := &AsyncSink{
		inner:   inner,
		entryCh: make(chan *Entry, bufferSize),
	}
	s.wg.Add(1)
	go s.process()
	return s
}

func (s *AsyncSink) Write(entry *Entry) {
	s.entryCh <- entry
}

func (s *AsyncSink) process() {
	defer s.wg.Done()
	for entry := range s.entryCh {
		s.inner.Write(entry)
	}
}

// Close 关闭输出端并等待队列排空
func (s *AsyncSink) Close() error {
	s.closeOnce.Do(func() {
		close(s.entryCh)
	})
	s.wg.Wait()
	return nil
}

package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// AsyncHook là một hook để ghi log bất đồng bộ, tránh blocking request/worker.
// Entry được format ngay tại Fire (rẻ), còn I/O ra writers chạy trong goroutine riêng.
// Hỗ trợ nhiều writers (file, stdout, etc.).
type AsyncHook struct {
	writers    []io.Writer
	lines      chan []byte
	wg         sync.WaitGroup
	mu         sync.Mutex
	closed     bool
	bufferSize int
}

// NewAsyncHookWithWriters tạo một async hook mới với nhiều writers.
// bufferSize: kích thước buffer cho log entries (mặc định 1000).
func NewAsyncHookWithWriters(writers []io.Writer, bufferSize int) *AsyncHook {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	hook := &AsyncHook{
		writers:    writers,
		lines:      make(chan []byte, bufferSize),
		bufferSize: bufferSize,
	}

	hook.wg.Add(1)
	go hook.processLines()

	return hook
}

// Levels trả về các log levels mà hook này xử lý
func (h *AsyncHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire được gọi mỗi khi có log entry mới.
// Không block: nếu buffer đầy, entry bị drop (ghi cảnh báo ra stderr).
func (h *AsyncHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return nil
	}

	line, err := entry.Bytes()
	if err != nil {
		return err
	}

	select {
	case h.lines <- line:
	default:
		// Buffer đầy — drop thay vì block caller
		fmt.Fprintf(os.Stderr, "logger: async buffer full, dropped entry\n")
	}
	return nil
}

// processLines ghi các dòng log đã format vào toàn bộ writers
func (h *AsyncHook) processLines() {
	defer h.wg.Done()
	for line := range h.lines {
		for _, w := range h.writers {
			if _, err := w.Write(line); err != nil {
				fmt.Fprintf(os.Stderr, "logger: write failed: %v\n", err)
			}
		}
	}
}

// Close đóng hook và chờ flush hết buffer. An toàn khi gọi nhiều lần.
func (h *AsyncHook) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	close(h.lines)
	h.wg.Wait()
}

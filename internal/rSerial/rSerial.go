// r in rserial stands for "robust"
package rserial

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"sleepywoodpecker/freq-monitor/internal/series"
)

const readChunkSize = 64

// BaudRates is the set of rates the instrument firmware can be flashed with.
var BaudRates = []int{9600, 115200, 230400, 460800, 921600}

const DefaultBaudRate = 230400

// ErrParseSkip marks a line that is not a sample. It never leaves NextSample.
var ErrParseSkip = errors.New("[rserial] line is not a sample")

// ErrClosed is returned by reads that complete after Close.
var ErrClosed = errors.New("[rserial] port closed")

type ReadTimeoutError struct {
	PortName string
	Timeout  time.Duration
}

func (e *ReadTimeoutError) Error() string {
	return fmt.Sprintf("[rserial] no data from %s within %v", e.PortName, e.Timeout)
}

type rserial struct {
	port        io.ReadCloser
	tempBuff    []byte
	pending     []byte
	logger      *zap.Logger
	portName    string
	readTimeout time.Duration
	needsSync   bool
	closed      atomic.Bool
}

// ValidateBaudRate rejects rates outside BaudRates.
func ValidateBaudRate(baudrate int) error {
	if !slices.Contains(BaudRates, baudrate) {
		return fmt.Errorf("unsupported baud rate %d (want one of %v)", baudrate, BaudRates)
	}
	return nil
}

// Open connects to a serial port and returns a line reader on it. The first
// line after connecting is dropped since the input buffer reset can leave the
// stream positioned mid-line.
func Open(portName string, baudrate int, readTimeout time.Duration, logger *zap.Logger) (*rserial, error) {
	if err := ValidateBaudRate(baudrate); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: baudrate,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("[rserial] opening %s: %w", portName, err)
	}

	timeout := serial.NoTimeout
	if readTimeout > 0 {
		timeout = readTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("[rserial] setting read timeout on %s: %w", portName, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		logger.Warn("[rserial] could not reset input buffer", zap.Error(err), zap.String("portName", portName))
	}

	r := NewReader(port, portName, logger)
	r.readTimeout = readTimeout
	r.needsSync = true

	logger.Info("[rserial] opened serial port", zap.String("portName", portName), zap.Int("baudRate", baudrate))
	return r, nil
}

// NewReader wraps any byte stream that yields newline terminated samples.
func NewReader(rc io.ReadCloser, name string, logger *zap.Logger) *rserial {
	return &rserial{
		port:     rc,
		tempBuff: make([]byte, readChunkSize),
		logger:   logger,
		portName: name,
	}
}

// ListPorts returns the serial ports currently visible to the OS.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("[rserial] listing ports: %w", err)
	}
	return ports, nil
}

func (r *rserial) Name() string {
	return r.portName
}

// ReadLine returns the next raw line without its terminating newline. A read
// that returns no bytes is reported as a ReadTimeoutError.
func (r *rserial) ReadLine() (string, error) {
	for {
		if r.closed.Load() {
			r.pending = nil
			return "", ErrClosed
		}

		if i := bytes.IndexByte(r.pending, '\n'); i >= 0 {
			line := string(r.pending[:i])
			r.pending = append(r.pending[:0], r.pending[i+1:]...)
			if r.needsSync {
				r.needsSync = false
				r.logger.Debug("[rserial] dropped leading partial line", zap.String("portName", r.portName))
				continue
			}
			return line, nil
		}

		n, err := r.port.Read(r.tempBuff)
		if r.closed.Load() {
			// partial lines left over from a closed port are never delivered
			r.pending = nil
			return "", ErrClosed
		}
		if n > 0 {
			r.pending = append(r.pending, r.tempBuff[:n]...)
		}
		if err != nil {
			r.pending = nil
			return "", fmt.Errorf("[rserial] reading from %s: %w", r.portName, err)
		}
		if n == 0 {
			return "", &ReadTimeoutError{PortName: r.portName, Timeout: r.readTimeout}
		}
	}
}

// NextSample reads lines until one parses as a sample. Malformed lines are
// dropped without being reported.
func (r *rserial) NextSample() (series.Sample, error) {
	for {
		line, err := r.ReadLine()
		if err != nil {
			return 0, err
		}

		sample, err := ParseSample(line)
		if errors.Is(err, ErrParseSkip) {
			r.logger.Debug("[rserial] skipping line", zap.String("portName", r.portName), zap.String("line", line))
			continue
		}
		return sample, nil
	}
}

// ParseSample decodes one device line. Surrounding whitespace is ignored; a
// carriage return left inside the line marks a corrupted transmission.
func ParseSample(line string) (series.Sample, error) {
	if !utf8.ValidString(line) {
		return 0, ErrParseSkip
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.ContainsRune(trimmed, '\r') {
		return 0, ErrParseSkip
	}
	v, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, ErrParseSkip
	}
	return v, nil
}

func (r *rserial) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.logger.Info("[rserial] closing serial port", zap.String("portName", r.portName))
	if err := r.port.Close(); err != nil {
		return fmt.Errorf("[rserial] closing %s: %w", r.portName, err)
	}
	return nil
}

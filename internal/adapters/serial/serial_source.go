// Package serial provides line sources backed by a serial port or any reader.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Config captures the port settings of the power monitor.
type Config struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.Baud <= 0 {
		c.Baud = 115200
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 500 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	return nil
}

// Open opens the configured port and returns it as a line source.
func Open(cfg Config) (*ReaderSource, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("serial read timeout: %w", err)
	}

	pr := &portReader{port: port, closed: make(chan struct{})}
	return NewReaderSource(pr), nil
}

// portReader hides read timeouts from bufio.Scanner, which gives up after a
// run of empty reads. Timeouts only exist so Close is noticed promptly.
type portReader struct {
	port   serial.Port
	closed chan struct{}
}

func (p *portReader) Read(b []byte) (int, error) {
	for {
		n, err := p.port.Read(b)
		if n > 0 || err != nil {
			return n, err
		}
		select {
		case <-p.closed:
			return 0, io.EOF
		default:
		}
	}
}

func (p *portReader) Close() error {
	close(p.closed)
	return p.port.Close()
}

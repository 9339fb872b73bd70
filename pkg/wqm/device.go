package wqm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate of the sensor board firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100
	// MaxADC is the largest value of a 12-bit ADC reading.
	MaxADC = 4095
)

// RawSample represents a raw measurement sample from the sensor board.
type RawSample struct {
	Timestamp    time.Time
	Chlorine     uint16 // 12-bit ADC reading (0-4095)
	Turbidity    uint16 // 12-bit ADC reading (0-4095)
	Conductivity uint16 // 12-bit ADC reading (0-4095)
	PH           uint16 // 12-bit ADC reading (0-4095)
	Button       bool   // Trigger asserted (pulled-up line reads low)
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the sensor board.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	closeOnce sync.Once
}

// New creates a new Serial device with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		samples:  make(chan RawSample, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}

	return result, nil
}

// Connect opens the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	go d.readSamples(port)

	return nil
}

// Close closes the connection and stops reading samples.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false
	d.closeSamples()

	return nil
}

// Samples returns the channel for reading samples.
func (d *Serial) Samples() <-chan RawSample {
	return d.samples
}

// SetIndicators drives the three lamps of the board.
func (d *Serial) SetIndicators(green, yellow, red bool) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return fmt.Errorf("not connected")
	}

	if _, err := d.conn.Write([]byte(indicatorCommand(green, yellow, red))); err != nil {
		return fmt.Errorf("failed to send indicator command: %w", err)
	}

	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// readSamples reads lines from the serial port and parses them into RawSample.
func (d *Serial) readSamples(r io.Reader) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readSamples: %v", r)
		}
	}()

	scanner := bufio.NewScanner(r)
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil && err != io.EOF {
					log.Printf("Error reading from serial port: %v", err)
				}
				if d.ctx.Err() == nil {
					log.Printf("Serial stream from %s ended", d.port)
					d.closeSamples()
				}
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			sample, err := parseLine(line)
			if err != nil {
				log.Printf("Failed to parse line '%s': %v", line, err)
				continue
			}

			d.mu.RLock()
			if !d.connected {
				d.mu.RUnlock()
				return
			}
			select {
			case d.samples <- sample:
			default:
				log.Printf("Samples channel full, dropping sample")
			}
			d.mu.RUnlock()
		}
	}
}

// closeSamples closes the sample channel once, either on Close or when the
// port stops delivering data.
func (d *Serial) closeSamples() {
	d.closeOnce.Do(func() { close(d.samples) })
}

// indicatorCommand builds the lamp command: green, yellow, red as 0/1 digits.
// Example: "100\n" lights green only.
func indicatorCommand(green, yellow, red bool) string {
	var cmd strings.Builder
	for _, on := range [3]bool{green, yellow, red} {
		if on {
			cmd.WriteByte('1')
		} else {
			cmd.WriteByte('0')
		}
	}
	cmd.WriteByte('\n')
	return cmd.String()
}

// parseLine parses a line from the board into a RawSample.
// Format: unix_micros,chlorine,turbidity,conductivity,ph,button
// Example: 1234567890123,820,4050,900,2100,0
func parseLine(line string) (RawSample, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 6 {
		return RawSample{}, fmt.Errorf("invalid line format: expected 6 comma-separated values, got %d", len(parts))
	}

	timestampMicros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	var adc [4]uint16
	names := [4]string{"chlorine", "turbidity", "conductivity", "ph"}
	for i := range adc {
		v, err := strconv.ParseUint(parts[i+1], 10, 16)
		if err != nil {
			return RawSample{}, fmt.Errorf("invalid %s: %w", names[i], err)
		}
		if v > MaxADC {
			return RawSample{}, fmt.Errorf("%s out of range: %d (max %d)", names[i], v, MaxADC)
		}
		adc[i] = uint16(v)
	}

	var button bool
	switch parts[5] {
	case "1":
		button = true
	case "0":
	default:
		return RawSample{}, fmt.Errorf("invalid button state: %q", parts[5])
	}

	return RawSample{
		Timestamp:    time.Unix(0, timestampMicros*1000),
		Chlorine:     adc[0],
		Turbidity:    adc[1],
		Conductivity: adc[2],
		PH:           adc[3],
		Button:       button,
	}, nil
}

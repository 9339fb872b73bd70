//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	adcs [4]machine.ADC
	uart = machine.UART0

	lampPins   = [3]machine.Pin{PIN_LAMP_GREEN, PIN_LAMP_YELLOW, PIN_LAMP_RED}
	lampStates [3]bool

	// ADC averaging - running sums, one per channel
	sums  [4]uint32
	count int

	// Button is latched between output lines so short presses are not lost
	pressed bool

	// Timing
	lastADCRead time.Time

	// Serial buffer for reading lines
	serialBuffer [16]byte
	serialPos    int
)

func main() {
	// Configure lamp pins as outputs
	for _, pin := range lampPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.Low()
	}

	PIN_BUTTON.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	// Configure ADC pins and set up ADCs with highest resolution
	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}
	for i, pin := range [4]machine.Pin{PIN_CHLORINE, PIN_TURBIDITY, PIN_CONDUCTIVITY, PIN_PH} {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcs[i] = machine.ADC{Pin: pin}
		adcs[i].Configure(adcConfig)
	}

	// Configure UART for lamp control
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastADCRead = time.Now()

	// Main loop
	for {
		now := time.Now()

		// Check for serial input (non-blocking)
		processSerial()

		if !PIN_BUTTON.Get() {
			pressed = true
		}

		if now.Sub(lastADCRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond {
			readADCs()
			lastADCRead = now
		}

		if count >= NUM_SAMPLES {
			outputAveragedValues()
			sums = [4]uint32{}
			count = 0
			pressed = false
		}

		time.Sleep(100 * time.Microsecond)
	}
}

func readADCs() {
	for i := range adcs {
		// machine.ADC.Get returns a 16-bit scaled value
		sums[i] += uint32(adcs[i].Get() >> (16 - ADC_RESOLUTION))
	}
	count++
}

func outputAveragedValues() {
	n := uint32(count)
	if n == 0 {
		n = 1 // Avoid division by zero
	}

	// Get timestamp in unix microseconds
	timestampMicros := time.Now().UnixNano() / 1000

	// Output format: "unix_micros,chlorine,turbidity,conductivity,ph,button\n"
	// Example: "1234567890123,820,4050,900,2100,0\n"
	print(timestampMicros)
	for i := range sums {
		print(",")
		print(uint16(sums[i] / n))
	}
	if pressed {
		print(",1\n")
	} else {
		print(",0\n")
	}
}

func processSerial() {
	// Read available bytes from serial
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		// Check for newline (end of line)
		if data == '\n' || data == '\r' {
			if serialPos == 3 {
				// We have exactly 3 characters, process lamp states
				updateLamps()
			}
			// Reset buffer regardless of length
			serialPos = 0
			continue
		}

		// Ignore whitespace
		if data == ' ' || data == '\t' {
			continue
		}

		// Only accept '0' or '1', and only up to 3 characters
		if data == '0' || data == '1' {
			if serialPos < 3 {
				serialBuffer[serialPos] = data
				serialPos++
			}
		} else {
			// Invalid character - reset buffer
			serialPos = 0
		}
	}
}

// updateLamps applies the "GYR" command in serialBuffer.
func updateLamps() {
	for i, pin := range lampPins {
		lampStates[i] = serialBuffer[i] == '1'
		pin.Set(lampStates[i])
	}
}

//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS = 10 // ADC read interval in milliseconds (all channels)
	NUM_SAMPLES        = 5  // Samples averaged per output line (one line every 50 ms)

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Lamp pins
	PIN_LAMP_GREEN  = machine.D7
	PIN_LAMP_YELLOW = machine.D8
	PIN_LAMP_RED    = machine.D9

	// Trigger button, pulled up; pressed reads low
	PIN_BUTTON = machine.D10

	// Sensor pins
	PIN_CHLORINE     = machine.A0
	PIN_TURBIDITY    = machine.A1
	PIN_CONDUCTIVITY = machine.A2
	PIN_PH           = machine.A3

	// Serial configuration
	// Line format: "unix_micros,chlorine,turbidity,conductivity,ph,button\n"
	// Example: "1234567890123456,4095,4095,4095,4095,1\n" = ~40 bytes max per line
	// 20 lines/sec * 40 bytes/line = 800 bytes/sec, far below 115200 baud (11,520 bytes/sec)
	UART_BAUD_RATE = 115200
)

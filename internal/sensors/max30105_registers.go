// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

// MAX30105 register addresses and field values.
const (
	regIntStatus1      = 0x00
	regFIFOWritePtr    = 0x04
	regFIFOOverflow    = 0x05
	regFIFOReadPtr     = 0x06
	regFIFOData        = 0x07
	regFIFOConfig      = 0x08
	regModeConfig      = 0x09
	regParticleConfig  = 0x0A
	regLED1PulseAmp    = 0x0C // red
	regLED2PulseAmp    = 0x0D // IR
	regLED3PulseAmp    = 0x0E // green
	regMultiLEDConfig1 = 0x11
	regDieTempInt      = 0x1F
	regRevisionID      = 0xFE
	regPartID          = 0xFF

	fifoSampleAvg4     = 0x40
	fifoRolloverEnable = 0x10

	modeShutdown = 0x80
	modeReset    = 0x40
	modeRedIR    = 0x03

	adcRange16384 = 0x60
	sampleRate50  = 0x00
	pulseWidth411 = 0x03

	slotRed = 0x01
	slotIR  = 0x02

	fifoDepth      = 32
	bytesPerSample = 6 // two active LEDs, 3 bytes each
	sampleMask     = 0x3FFFF
)

// BitField describes a group of bits inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo is the metadata for one register.
type RegisterInfo struct {
	Address     byte       `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// MAX30105RegisterMap returns metadata for the registers the driver touches.
func MAX30105RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		{Address: regIntStatus1, Name: "INT_STATUS_1", Description: "Interrupt Status 1", Access: "R",
			BitFields: []BitField{
				{Bits: "7", Name: "A_FULL", Description: "FIFO almost full"},
				{Bits: "6", Name: "PPG_RDY", Description: "New FIFO data ready"},
				{Bits: "0", Name: "PWR_RDY", Description: "Power ready"},
			}},
		{Address: regFIFOWritePtr, Name: "FIFO_WR_PTR", Description: "FIFO Write Pointer", Access: "RW"},
		{Address: regFIFOOverflow, Name: "OVF_COUNTER", Description: "FIFO Overflow Counter", Access: "RW"},
		{Address: regFIFOReadPtr, Name: "FIFO_RD_PTR", Description: "FIFO Read Pointer", Access: "RW"},
		{Address: regFIFOConfig, Name: "FIFO_CONFIG", Description: "FIFO Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "7:5", Name: "SMP_AVE", Description: "Sample averaging", Values: "0=1, 1=2, 2=4, 3=8, 4=16, 5=32"},
				{Bits: "4", Name: "FIFO_ROLLOVER_EN", Description: "FIFO rolls over when full", Values: "0=Disabled, 1=Enabled"},
				{Bits: "3:0", Name: "FIFO_A_FULL", Description: "Almost-full threshold"},
			}},
		{Address: regModeConfig, Name: "MODE_CONFIG", Description: "Mode Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "7", Name: "SHDN", Description: "Shutdown"},
				{Bits: "6", Name: "RESET", Description: "Soft reset"},
				{Bits: "2:0", Name: "MODE", Description: "LED mode", Values: "2=Red only, 3=Red+IR, 7=Multi-LED"},
			}},
		{Address: regParticleConfig, Name: "PARTICLE_CONFIG", Description: "ADC, sample rate and pulse width", Access: "RW",
			BitFields: []BitField{
				{Bits: "6:5", Name: "ADC_RGE", Description: "ADC full scale", Values: "0=2048nA, 1=4096nA, 2=8192nA, 3=16384nA"},
				{Bits: "4:2", Name: "SR", Description: "Sample rate", Values: "0=50, 1=100, 2=200, 3=400, 4=800, 5=1000, 6=1600, 7=3200"},
				{Bits: "1:0", Name: "LED_PW", Description: "Pulse width", Values: "0=69us, 1=118us, 2=215us, 3=411us"},
			}},
		{Address: regLED1PulseAmp, Name: "LED1_PA", Description: "Red LED pulse amplitude", Access: "RW"},
		{Address: regLED2PulseAmp, Name: "LED2_PA", Description: "IR LED pulse amplitude", Access: "RW"},
		{Address: regLED3PulseAmp, Name: "LED3_PA", Description: "Green LED pulse amplitude", Access: "RW"},
		{Address: regMultiLEDConfig1, Name: "MULTI_LED_CTRL1", Description: "Multi-LED slots 1 and 2", Access: "RW",
			BitFields: []BitField{
				{Bits: "6:4", Name: "SLOT2", Description: "Slot 2 LED", Values: "0=None, 1=Red, 2=IR, 3=Green"},
				{Bits: "2:0", Name: "SLOT1", Description: "Slot 1 LED", Values: "0=None, 1=Red, 2=IR, 3=Green"},
			}},
		{Address: regDieTempInt, Name: "TINT", Description: "Die temperature integer part", Access: "R"},
		{Address: regRevisionID, Name: "REV_ID", Description: "Revision ID", Access: "R"},
		{Address: regPartID, Name: "PART_ID", Description: "Part ID", Access: "R"},
	}
}

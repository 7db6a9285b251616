package beamformer

// Common sample rates.
const (
	// RateDAT is the DAT/DVD sample rate the eStick hardware runs at.
	RateDAT = 48000

	// RateCD is the CD quality sample rate.
	RateCD = 44100

	// RateHiRes96 is the high-resolution 2x DAT sample rate.
	RateHiRes96 = 96000
)

// Configuration defaults and limits
const (
	DefaultBlockSize     = 512
	DefaultFIRUpdateTime = 0.2 // seconds
	DefaultNumSources    = 2

	maxSources   = 64
	maxBlockSize = 1 << 16
	maxRate      = 768000
)

// Latency divisor: a broadside beam is delayed by half its FIR length.
const latencyDivisor = 2

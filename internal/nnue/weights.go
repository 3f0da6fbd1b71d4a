package nnue

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Weight file format constants.
const (
	MagicNumber = 0x46524B53 // "FRKS"
	Version     = 2          // flat 768-input, single-hidden-layer format
)

// FileHeader is the header of the weight file.
type FileHeader struct {
	Magic      uint32
	Version    uint32
	InputSize  uint32
	HiddenSize uint32
}

// LoadWeights loads network weights from a binary file.
// File format:
//   - Header: Magic, Version, InputSize, HiddenSize (4 bytes each)
//   - W1: InputSize * HiddenSize * float64
//   - B1: HiddenSize * float64
//   - W2: HiddenSize * float64
//   - B0: float64
func (n *Network) LoadWeights(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open weights file: %w", err)
	}
	defer f.Close()
	return n.LoadWeightsFromReader(f)
}

// SaveWeights saves network weights to a binary file.
func (n *Network) SaveWeights(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}
	defer f.Close()

	header := FileHeader{
		Magic:      MagicNumber,
		Version:    Version,
		InputSize:  InputSize,
		HiddenSize: HiddenSize,
	}
	if err := binary.Write(f, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := 0; i < InputSize; i++ {
		if err := binary.Write(f, binary.LittleEndian, &n.W1[i]); err != nil {
			return fmt.Errorf("failed to write W1 at %d: %w", i, err)
		}
	}
	if err := binary.Write(f, binary.LittleEndian, &n.B1); err != nil {
		return fmt.Errorf("failed to write B1: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, &n.W2); err != nil {
		return fmt.Errorf("failed to write W2: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, &n.B0); err != nil {
		return fmt.Errorf("failed to write B0: %w", err)
	}
	return nil
}

// LoadWeightsFromReader loads network weights from an io.Reader.
func (n *Network) LoadWeightsFromReader(r io.Reader) error {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if header.Magic != MagicNumber {
		return fmt.Errorf("invalid magic number: expected %x, got %x", MagicNumber, header.Magic)
	}
	if header.Version != Version {
		return fmt.Errorf("unsupported version: expected %d, got %d", Version, header.Version)
	}
	if header.InputSize != InputSize {
		return fmt.Errorf("input size mismatch: expected %d, got %d", InputSize, header.InputSize)
	}
	if header.HiddenSize != HiddenSize {
		return fmt.Errorf("hidden size mismatch: expected %d, got %d", HiddenSize, header.HiddenSize)
	}

	for i := 0; i < InputSize; i++ {
		if err := binary.Read(r, binary.LittleEndian, &n.W1[i]); err != nil {
			return fmt.Errorf("failed to read W1 at %d: %w", i, err)
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &n.B1); err != nil {
		return fmt.Errorf("failed to read B1: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.W2); err != nil {
		return fmt.Errorf("failed to read W2: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.B0); err != nil {
		return fmt.Errorf("failed to read B0: %w", err)
	}
	return nil
}

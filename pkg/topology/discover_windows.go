/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

//go:build windows

package topology

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetLogicalProcessorInformationEx = modkernel32.NewProc("GetLogicalProcessorInformationEx")
)

// ProcessorInformationReader reads the topology with GetLogicalProcessorInformationEx.
type ProcessorInformationReader struct {
	SMTWidth int
}

// NewReader returns the topology reader for the given source.
func NewReader(source Source) (Reader, error) {
	switch source {
	case "", SourceAuto:
		return &ProcessorInformationReader{SMTWidth: SMTWidth}, nil
	}

	return nil, fmt.Errorf("%w: topology source %q", ErrUnsupportedPlatform, source)
}

// Cores returns one Core per processor core record of group 0.
func (r *ProcessorInformationReader) Cores() ([]Core, error) {
	buf, err := logicalProcessorInformation()
	if err != nil {
		return nil, err
	}

	info, err := DecodeProcessorInformation(buf)
	if err != nil {
		return nil, err
	}

	return CoresFromRecords(info, r.SMTWidth)
}

// logicalProcessorInformation asks for the buffer size first, then fills it.
func logicalProcessorInformation() ([]byte, error) {
	if err := procGetLogicalProcessorInformationEx.Find(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTopologyUnavailable, err)
	}

	var length uint32

	r1, _, e1 := procGetLogicalProcessorInformationEx.Call(uintptr(RelationAll), 0, uintptr(unsafe.Pointer(&length)))
	if r1 != 0 || !errors.Is(e1, windows.ERROR_INSUFFICIENT_BUFFER) || length == 0 {
		return nil, fmt.Errorf("%w: sizing GetLogicalProcessorInformationEx buffer: %w", ErrTopologyUnavailable, e1)
	}

	buf := make([]byte, length)

	r1, _, e1 = procGetLogicalProcessorInformationEx.Call(
		uintptr(RelationAll),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&length)),
	)
	if r1 == 0 {
		return nil, fmt.Errorf("%w: GetLogicalProcessorInformationEx: %w", ErrTopologyUnavailable, e1)
	}

	return buf[:min(int(length), len(buf))], nil
}

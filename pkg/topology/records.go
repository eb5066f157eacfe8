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

package topology

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"k8s.io/utils/cpuset"
)

// SMTWidth is the number of logical processors per physical core assumed when
// deriving a physical core id from a processor core mask. It matches the
// 2-way SMT of the processors this was built for and is not a general
// formula; revisit it before supporting wider SMT designs.
const SMTWidth = 2

// Relationship kinds of SYSTEM_LOGICAL_PROCESSOR_INFORMATION_EX records.
const (
	RelationProcessorCore uint32 = 0
	RelationCache         uint32 = 2
	RelationAll           uint32 = 0xffff
)

// Cache types of CACHE_RELATIONSHIP.
const (
	CacheUnified     uint32 = 0
	CacheInstruction uint32 = 1
	CacheData        uint32 = 2
	CacheTrace       uint32 = 3
)

// Record layout on 64-bit Windows. Offsets are from the start of a record.
const (
	recordHeaderSize = 8

	processorGroupCountOffset = 30
	processorGroupMaskOffset  = 32
	processorRecordMinSize    = processorGroupMaskOffset + groupAffinitySize

	cacheLevelOffset      = 8
	cacheSizeOffset       = 12
	cacheTypeOffset       = 16
	cacheGroupMaskOffset  = 40
	cacheRecordMinSize    = cacheGroupMaskOffset + groupAffinitySize
	groupAffinitySize     = 16
	groupAffinityGroupOff = 8
)

// GroupAffinity is a processor group number and the mask of processors in it.
type GroupAffinity struct {
	Mask  uint64
	Group uint16
}

// ProcessorRecord is a decoded processor core relationship.
type ProcessorRecord struct {
	GroupMask GroupAffinity
}

// CacheRecord is a decoded cache relationship.
type CacheRecord struct {
	Level     uint8
	Type      uint32
	Size      uint32
	GroupMask GroupAffinity
}

// ProcessorInformation holds the records of interest found in a
// GetLogicalProcessorInformationEx buffer, in buffer order.
type ProcessorInformation struct {
	Processors []ProcessorRecord
	Caches     []CacheRecord
}

// DecodeProcessorInformation walks a buffer of variable length records. Each
// record starts with its relationship kind and its own size, which is the
// only way to find the next record. Every read is checked against the buffer
// and the declared record size.
func DecodeProcessorInformation(buf []byte) (*ProcessorInformation, error) {
	info := &ProcessorInformation{}

	for offset := 0; offset < len(buf); {
		if len(buf)-offset < recordHeaderSize {
			return nil, fmt.Errorf("%w: %d trailing bytes at offset %d", ErrMalformedRecord, len(buf)-offset, offset)
		}

		relationship := binary.LittleEndian.Uint32(buf[offset:])
		size := int(binary.LittleEndian.Uint32(buf[offset+4:]))

		if size < recordHeaderSize || size > len(buf)-offset {
			return nil, fmt.Errorf("%w: record at offset %d declares size %d, %d bytes left",
				ErrMalformedRecord, offset, size, len(buf)-offset)
		}

		record := buf[offset : offset+size]

		switch relationship {
		case RelationProcessorCore:
			processor, err := decodeProcessorRecord(record)
			if err != nil {
				return nil, fmt.Errorf("record at offset %d: %w", offset, err)
			}

			info.Processors = append(info.Processors, processor)
		case RelationCache:
			cache, err := decodeCacheRecord(record)
			if err != nil {
				return nil, fmt.Errorf("record at offset %d: %w", offset, err)
			}

			info.Caches = append(info.Caches, cache)
		}

		offset += size
	}

	return info, nil
}

func decodeProcessorRecord(record []byte) (ProcessorRecord, error) {
	if len(record) < processorRecordMinSize {
		return ProcessorRecord{}, fmt.Errorf("%w: processor record of %d bytes", ErrMalformedRecord, len(record))
	}

	if count := binary.LittleEndian.Uint16(record[processorGroupCountOffset:]); count == 0 {
		return ProcessorRecord{}, fmt.Errorf("%w: processor record without group mask", ErrMalformedRecord)
	}

	return ProcessorRecord{
		GroupMask: decodeGroupAffinity(record[processorGroupMaskOffset:]),
	}, nil
}

func decodeCacheRecord(record []byte) (CacheRecord, error) {
	if len(record) < cacheRecordMinSize {
		return CacheRecord{}, fmt.Errorf("%w: cache record of %d bytes", ErrMalformedRecord, len(record))
	}

	return CacheRecord{
		Level:     record[cacheLevelOffset],
		Size:      binary.LittleEndian.Uint32(record[cacheSizeOffset:]),
		Type:      binary.LittleEndian.Uint32(record[cacheTypeOffset:]),
		GroupMask: decodeGroupAffinity(record[cacheGroupMaskOffset:]),
	}, nil
}

func decodeGroupAffinity(b []byte) GroupAffinity {
	return GroupAffinity{
		Mask:  binary.LittleEndian.Uint64(b),
		Group: binary.LittleEndian.Uint16(b[groupAffinityGroupOff:]),
	}
}

// CoresFromRecords correlates processor core records with the level 3 cache
// records whose mask overlaps them. The cache group id is the position of the
// matching L3 record among all L3 records. Only processor group 0 is
// considered, since process affinity masks address a single group.
func CoresFromRecords(info *ProcessorInformation, smtWidth int) ([]Core, error) {
	if smtWidth < 1 {
		return nil, fmt.Errorf("invalid SMT width %d", smtWidth)
	}

	l3 := make([]CacheRecord, 0, len(info.Caches))

	for _, cache := range info.Caches {
		if cache.Level == 3 && (cache.Type == CacheData || cache.Type == CacheUnified) && cache.GroupMask.Group == 0 {
			l3 = append(l3, cache)
		}
	}

	cores := make([]Core, 0, len(info.Processors))

	for _, processor := range info.Processors {
		mask := processor.GroupMask.Mask
		if processor.GroupMask.Group != 0 || mask == 0 {
			continue
		}

		cacheID := -1

		for i, cache := range l3 {
			if cache.GroupMask.Mask&mask != 0 {
				cacheID = i

				break
			}
		}

		if cacheID < 0 {
			return nil, fmt.Errorf("%w: no L3 cache covers processor mask %#x", ErrTopologyUnavailable, mask)
		}

		cores = append(cores, Core{
			PhysicalID: bits.TrailingZeros64(mask) / smtWidth,
			CPUs:       MaskToCPUSet(mask),
			Cache: CacheGroup{
				ID:   cacheID,
				Size: uint64(l3[cacheID].Size),
			},
		})
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("%w: no processor core records", ErrTopologyUnavailable)
	}

	return cores, nil
}

// MaskToCPUSet converts an affinity bit mask into a CPU set.
func MaskToCPUSet(mask uint64) cpuset.CPUSet {
	cpus := make([]int, 0, bits.OnesCount64(mask))

	for mask != 0 {
		cpu := bits.TrailingZeros64(mask)
		cpus = append(cpus, cpu)
		mask &^= 1 << cpu
	}

	return cpuset.New(cpus...)
}

// CPUSetToMask converts a CPU set into an affinity bit mask. CPUs above 63
// cannot be expressed and are reported as dropped.
func CPUSetToMask(cpus cpuset.CPUSet) (mask uint64, dropped cpuset.CPUSet) {
	var over []int

	for _, cpu := range cpus.List() {
		if cpu < 0 || cpu > 63 {
			over = append(over, cpu)

			continue
		}

		mask |= 1 << cpu
	}

	return mask, cpuset.New(over...)
}

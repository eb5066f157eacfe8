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

package ccx

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergelogvinov/procpin/pkg/topology"

	"k8s.io/utils/cpuset"
)

func core(cpu, physical, cache int) topology.Core {
	return topology.Core{
		PhysicalID: physical,
		CPUs:       cpuset.New(cpu),
		Cache:      topology.CacheGroup{ID: cache, Size: 32 << 20},
	}
}

// epyc16 is a 2 CCX, 8 core, SMT2 layout where siblings are numbered n and n+8.
func epyc16() []topology.Core {
	cores := make([]topology.Core, 0, 16)

	for cpu := range 16 {
		physical := cpu % 8
		cores = append(cores, core(cpu, physical, physical/4))
	}

	return cores
}

func TestGroupThreeCores(t *testing.T) {
	t.Parallel()

	complexes, err := Group([]topology.Core{
		core(0, 0, 0),
		core(1, 1, 0),
		core(2, 2, 1),
	})
	require.NoError(t, err)
	require.Len(t, complexes, 2)

	assert.Equal(t, 0, complexes[0].Index)
	assert.True(t, complexes[0].CPUs().Equals(cpuset.New(0, 1)))
	assert.Equal(t, 1, complexes[1].Index)
	assert.True(t, complexes[1].CPUs().Equals(cpuset.New(2)))
}

func TestGroupPartition(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		cores []topology.Core
		want  []cpuset.CPUSet
	}{
		{
			name:  "smt siblings",
			cores: epyc16(),
			want: []cpuset.CPUSet{
				cpuset.New(0, 1, 2, 3, 8, 9, 10, 11),
				cpuset.New(4, 5, 6, 7, 12, 13, 14, 15),
			},
		},
		{
			name: "cache ids do not follow cpu order",
			cores: []topology.Core{
				core(0, 0, 7),
				core(1, 1, 3),
				core(2, 2, 7),
				core(3, 3, 3),
				core(4, 4, 1),
			},
			want: []cpuset.CPUSet{
				cpuset.New(0, 2),
				cpuset.New(1, 3),
				cpuset.New(4),
			},
		},
		{
			name:  "single complex",
			cores: []topology.Core{core(0, 0, 0), core(1, 0, 0)},
			want:  []cpuset.CPUSet{cpuset.New(0, 1)},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			complexes, err := Group(testCase.cores)
			require.NoError(t, err)
			require.Len(t, complexes, len(testCase.want))

			all := cpuset.New()
			seen := 0

			for i, c := range complexes {
				assert.Equal(t, i, c.Index)
				assert.True(t, c.CPUs().Equals(testCase.want[i]), "complex %d: got %s want %s", i, c.CPUs(), testCase.want[i])

				for _, member := range c.Cores {
					assert.Equal(t, c.Cache.ID, member.Cache.ID)
				}

				all = all.Union(c.CPUs())
				seen += c.CPUs().Size()
			}

			input := cpuset.New()
			for _, member := range testCase.cores {
				input = input.Union(member.CPUs)
			}

			assert.True(t, all.Equals(input), "union of complexes must equal the input")
			assert.Equal(t, input.Size(), seen, "no cpu may appear in two complexes")
		})
	}
}

func TestGroupDeterministic(t *testing.T) {
	t.Parallel()

	want, err := Group(epyc16())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))

	for range 20 {
		cores := epyc16()
		rng.Shuffle(len(cores), func(i, j int) { cores[i], cores[j] = cores[j], cores[i] })

		got, err := Group(cores)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, Fingerprint(want), Fingerprint(got))
	}
}

func TestGroupEmpty(t *testing.T) {
	t.Parallel()

	_, err := Group(nil)
	assert.ErrorIs(t, err, ErrNoCores)
}

func TestFingerprintChangesWithLayout(t *testing.T) {
	t.Parallel()

	a, err := Group([]topology.Core{core(0, 0, 0), core(1, 1, 1)})
	require.NoError(t, err)

	b, err := Group([]topology.Core{core(0, 0, 0), core(1, 1, 0)})
	require.NoError(t, err)

	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 16)
}

func TestComplexPhysicalCores(t *testing.T) {
	t.Parallel()

	complexes, err := Group(epyc16())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3}, complexes[0].PhysicalCores())
	assert.Equal(t, []int{4, 5, 6, 7}, complexes[1].PhysicalCores())
	assert.Equal(t, 0, complexes[0].DieIndex())
	assert.Equal(t, 1, complexes[1].DieIndex())
	assert.Equal(t, "ccx1(cache=1 cpus=4-7,12-15)", complexes[1].String())
}

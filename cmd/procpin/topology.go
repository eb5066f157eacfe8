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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	cobra "github.com/spf13/cobra"

	"github.com/sergelogvinov/procpin/pkg/ccx"

	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

type complexView struct {
	Index         int    `json:"index"`
	CacheID       int    `json:"cacheId"`
	CacheSize     uint64 `json:"cacheSize,omitempty"`
	Die           int    `json:"die"`
	PhysicalCores []int  `json:"physicalCores"`
	CPUs          string `json:"cpus"`
}

type topologyView struct {
	Fingerprint string        `json:"fingerprint"`
	Complexes   []complexView `json:"complexes"`
}

func newTopologyView(complexes []ccx.Complex) topologyView {
	view := topologyView{
		Fingerprint: ccx.Fingerprint(complexes),
		Complexes:   make([]complexView, 0, len(complexes)),
	}

	for _, c := range complexes {
		view.Complexes = append(view.Complexes, complexView{
			Index:         c.Index,
			CacheID:       c.Cache.ID,
			CacheSize:     c.Cache.Size,
			Die:           c.DieIndex(),
			PhysicalCores: c.PhysicalCores(),
			CPUs:          c.CPUs().String(),
		})
	}

	return view
}

func buildTopologyCmd(o *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "topology",
		Aliases: []string{"t"},
		Short:   "Print the core complexes of this machine and exit",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			klog.SetLogger(setupLogger(o.verbosity, cmd.ErrOrStderr()))

			complexes, err := discoverComplexes(o.topologySource)
			if err != nil {
				return err
			}

			return writeTopology(cmd.OutOrStdout(), output, complexes)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, json, yaml)")

	return cmd
}

func writeTopology(w io.Writer, format string, complexes []ccx.Complex) error {
	view := newTopologyView(complexes)

	switch format {
	case "json":
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(w, string(data))

		return err
	case "yaml":
		data, err := yaml.Marshal(view)
		if err != nil {
			return err
		}

		_, err = w.Write(data)

		return err
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

		fmt.Fprintf(tw, "COMPLEX\tCACHE\tDIE\tCORES\tCPUS\n")

		for _, c := range view.Complexes {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\n", c.Index, c.CacheID, c.Die, len(c.PhysicalCores), c.CPUs)
		}

		fmt.Fprintf(tw, "\nfingerprint: %s\n", view.Fingerprint)

		return tw.Flush()
	}

	return fmt.Errorf("unknown output format %q", format)
}

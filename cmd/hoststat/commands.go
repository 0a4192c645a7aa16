// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/antimetal/hoststat/pkg/performance"
	"github.com/antimetal/hoststat/pkg/units"
)

func newUptimeCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "uptime",
		Short: "Show how long the host has been running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			sample, ok := s.Uptime()
			if !ok {
				return fmt.Errorf("uptime not available under %s", s.Config().HostProcPath)
			}
			report := struct {
				Now           time.Time `json:"now"`
				UptimeSeconds int64     `json:"uptime_seconds"`
				Human         string    `json:"human"`
				Started       time.Time `json:"started"`
			}{sample.Now, sample.UptimeSeconds, sample.Human(), sample.Started}

			return o.printer(cmd).print(report, keyValues("Uptime",
				"now", report.Now.Format(time.RFC3339),
				"uptime", strconv.FormatInt(report.UptimeSeconds, 10)+"s",
				"human", report.Human,
				"started", report.Started.Format(time.RFC3339),
			))
		},
	}
}

func newCPUInfoCommand(o *options) *cobra.Command {
	var (
		core   int
		fields []string
	)

	cmd := &cobra.Command{
		Use:   "cpuinfo",
		Short: "Show processor identity from cpuinfo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			var records []performance.CPUIdentityRecord
			if core >= 0 {
				records = []performance.CPUIdentityRecord{s.CPUInfoCore(core, fields...)}
			} else {
				records = s.CPUInfo(fields...)
			}

			sections := make([]section, 0, len(records))
			for i, record := range records {
				n := i
				if core >= 0 {
					n = core
				}
				keys := make([]string, 0, len(record))
				for k := range record {
					keys = append(keys, k)
				}
				sort.Strings(keys)

				kv := make([]string, 0, 2*len(keys))
				for _, k := range keys {
					kv = append(kv, k, record[k])
				}
				sections = append(sections, keyValues(fmt.Sprintf("Core #%d", n), kv...))
			}
			return o.printer(cmd).print(records, sections...)
		},
	}

	cmd.Flags().IntVar(&core, "core", -1, "Only show this core")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Only show this field (repeatable), e.g. model_name")
	return cmd
}

func newStatCommand(o *options) *cobra.Command {
	type cpuRow struct {
		ID        string `json:"id"`
		User      uint64 `json:"user"`
		Nice      uint64 `json:"nice"`
		System    uint64 `json:"system"`
		Idle      uint64 `json:"idle"`
		IOWait    uint64 `json:"iowait"`
		IRQ       uint64 `json:"irq"`
		SoftIRQ   uint64 `json:"softirq"`
		Steal     uint64 `json:"steal"`
		Guest     uint64 `json:"guest"`
		GuestNice uint64 `json:"guest_nice"`
	}

	return &cobra.Command{
		Use:   "stat",
		Short: "Show the cumulative kernel counters from stat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			snap := s.Snapshot()
			report := struct {
				CPUs         []cpuRow `json:"cpus"`
				Ctxt         uint64   `json:"ctxt"`
				BTime        uint64   `json:"btime"`
				Processes    uint64   `json:"processes"`
				ProcsRunning uint64   `json:"procs_running"`
				ProcsBlocked uint64   `json:"procs_blocked"`
				Interrupts   uint64   `json:"intr"`
			}{
				CPUs:         make([]cpuRow, 0, len(snap.CPUs)),
				Ctxt:         snap.Ctxt,
				BTime:        snap.BTime,
				Processes:    snap.Processes,
				ProcsRunning: snap.ProcsRunning,
				ProcsBlocked: snap.ProcsBlocked,
				Interrupts:   snap.Interrupts,
			}

			counters := section{
				title:   "CPU time (USER_HZ)",
				headers: []string{"cpu", "user", "nice", "system", "idle", "iowait", "irq", "softirq", "steal", "guest", "guest_nice"},
			}
			for _, c := range snap.CPUs {
				report.CPUs = append(report.CPUs, cpuRow(c))
				counters.rows = append(counters.rows, []string{
					c.ID, u64(c.User), u64(c.Nice), u64(c.System), u64(c.Idle), u64(c.IOWait),
					u64(c.IRQ), u64(c.SoftIRQ), u64(c.Steal), u64(c.Guest), u64(c.GuestNice),
				})
			}

			return o.printer(cmd).print(report, counters, keyValues("Counters",
				"ctxt", u64(snap.Ctxt),
				"btime", u64(snap.BTime),
				"processes", u64(snap.Processes),
				"procs_running", u64(snap.ProcsRunning),
				"procs_blocked", u64(snap.ProcsBlocked),
				"intr", u64(snap.Interrupts),
			))
		},
	}
}

func newLoadCommand(o *options) *cobra.Command {
	var interval float64

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Measure CPU utilization over an interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval < 0 {
				return fmt.Errorf("interval must not be negative, got %v", interval)
			}
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			rounding := s.Config().Rounding
			wait := time.Duration(interval * float64(time.Second))
			loads, err := s.CPULoad(cmd.Context(), wait, rounding)
			if err != nil {
				return err
			}

			table := section{title: "CPU load", headers: []string{"cpu", "load"}}
			for _, l := range loads {
				table.rows = append(table.rows, []string{l.Label, units.FormatPercent(l.Percent, rounding)})
			}
			return o.printer(cmd).print(loads, table)
		},
	}

	cmd.Flags().Float64Var(&interval, "interval", 0, "Seconds between the two samples (0 uses the configured interval)")
	return cmd
}

func newMemoryCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "memory",
		Short: "Show RAM and swap usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			rounding := s.Config().Rounding
			usage := s.MemoryUsage()
			load := s.MemoryLoad(rounding)
			report := struct {
				Usage performance.MemoryUsage `json:"usage"`
				Load  performance.MemoryLoad  `json:"load"`
			}{usage, load}

			return o.printer(cmd).print(report, section{
				title:   "Memory",
				headers: []string{"", "total", "used", "free", "load"},
				rows: [][]string{
					{"Mem", units.FormatUint(usage.Total), units.FormatUint(usage.Used),
						units.FormatUint(usage.Available), units.FormatPercent(load.Load, rounding)},
					{"Swap", units.FormatUint(usage.SwapTotal), units.FormatUint(usage.SwapUsed),
						units.FormatUint(usage.SwapFree), units.FormatPercent(load.SwapLoad, rounding)},
				},
			})
		},
	}
}

func newMountsCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mounts",
		Short: "List every mounted file system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			mounts := s.Mounts()
			table := section{title: "Mounts", headers: []string{"device", "mount point", "type", "options"}}
			for _, m := range mounts {
				table.rows = append(table.rows, []string{m.Device, m.MountPoint, m.FileSystemType, m.Options})
			}
			return o.printer(cmd).print(mounts, table)
		},
	}
}

func newVolumesCommand(o *options) *cobra.Command {
	var types []string

	cmd := &cobra.Command{
		Use:   "volumes",
		Short: "Show usage of mounted volumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			rounding := s.Config().Rounding
			volumes := s.Volumes(types...)
			table := section{title: "Volumes", headers: []string{"device", "mount point", "type", "size", "used", "avail", "use%"}}
			for _, v := range volumes {
				row := []string{v.Device, v.MountPoint, v.FileSystemType, "-", "-", "-", "-"}
				if u := v.Usage; u != nil {
					row[3] = units.FormatUint(u.TotalBytes)
					row[4] = units.FormatUint(u.UsedBytes)
					row[5] = units.FormatUint(u.FreeBytes)
					row[6] = units.FormatPercent(u.UsedPercent, rounding)
				}
				table.rows = append(table.rows, row)
			}
			return o.printer(cmd).print(volumes, table)
		},
	}

	cmd.Flags().StringArrayVar(&types, "type", nil, "File system type to include (repeatable); defaults to the configured allow-list")
	return cmd
}

func newPartitionsCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "partitions",
		Short: "List block device partitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			partitions := s.Partitions()
			table := section{title: "Partitions", headers: []string{"name", "device", "blocks", "size"}}
			for _, p := range partitions {
				table.rows = append(table.rows, []string{p.Name, p.Device(), u64(p.Blocks), units.FormatUint(p.Bytes)})
			}
			return o.printer(cmd).print(partitions, table)
		},
	}
}

func newVersionCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the running kernel version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			info := s.Version()
			report := struct {
				Version          string `json:"version"`
				VersionSignature string `json:"version_signature,omitempty"`
				Kernel           string `json:"kernel,omitempty"`
			}{Version: info.Version, VersionSignature: info.VersionSignature}
			if info.Kernel != nil {
				report.Kernel = info.Kernel.String()
			}

			return o.printer(cmd).print(report, keyValues("Kernel",
				"kernel", report.Kernel,
				"version", report.Version,
				"signature", report.VersionSignature,
			))
		},
	}
}

func newIdentityCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Show the hostname and machine id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			id := s.Identity()
			return o.printer(cmd).print(id, keyValues("Host",
				"hostname", id.Hostname,
				"machine id", id.MachineID,
			))
		},
	}
}

func newLoadAvgCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "loadavg",
		Short: "Show the 1, 5 and 15 minute load averages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			stats, ok := s.LoadAverage()
			if !ok {
				return fmt.Errorf("load averages not available under %s", s.Config().HostProcPath)
			}
			return o.printer(cmd).print(stats, keyValues("Load average",
				"1 min", strconv.FormatFloat(stats.Load1Min, 'f', 2, 64),
				"5 min", strconv.FormatFloat(stats.Load5Min, 'f', 2, 64),
				"15 min", strconv.FormatFloat(stats.Load15Min, 'f', 2, 64),
				"running", fmt.Sprintf("%d/%d", stats.RunningProcs, stats.TotalProcs),
				"last pid", strconv.Itoa(int(stats.LastPID)),
			))
		},
	}
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

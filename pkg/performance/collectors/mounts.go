// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"
	"strings"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/performance"
)

func init() {
	performance.Register(performance.MetricTypeMounts,
		func(logger logr.Logger, config performance.CollectionConfig) (performance.PointCollector, error) {
			return NewMountCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ performance.PointCollector = (*MountCollector)(nil)

// MountCollector lists mounted file systems from /proc/mounts
//
// Each line is "device mount_point fs_type options dump pass". Whitespace and
// backslashes inside device and mount point are octal escaped by the kernel
// ("\040" for a space) and are decoded here.
//
// Reference: https://man7.org/linux/man-pages/man5/proc_mounts.5.html
type MountCollector struct {
	performance.BasePointCollector
}

func NewMountCollector(logger logr.Logger, config performance.CollectionConfig) (*MountCollector, error) {
	if err := config.Validate(performance.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := performance.CollectorCapabilities{
		SupportsOneShot:  true,
		RequiresRoot:     false,
		MinKernelVersion: "2.6.0",
		Sources:          []string{"mounts"},
	}

	return &MountCollector{
		BasePointCollector: performance.NewBasePointCollector(
			performance.MetricTypeMounts,
			"Mount Table Collector",
			logger,
			config,
			capabilities,
		),
	}, nil
}

func (c *MountCollector) Collect(ctx context.Context) (any, error) {
	return c.Mounts(), nil
}

// Mounts returns every mount in file order. Lines with fewer than three columns are skipped.
func (c *MountCollector) Mounts() []performance.MountRecord {
	mounts := []performance.MountRecord{}

	for _, line := range c.Reader().Lines("mounts") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			if len(fields) > 0 {
				c.Logger().V(2).Info("Skipping short mounts line", "line", line)
			}
			continue
		}

		record := performance.MountRecord{
			Device:         unescapeOctal(fields[0]),
			MountPoint:     unescapeOctal(fields[1]),
			FileSystemType: fields[2],
		}
		if len(fields) > 3 {
			record.Options = fields[3]
		}
		mounts = append(mounts, record)
	}

	return mounts
}

// unescapeOctal decodes the \ooo escapes the kernel uses in /proc/mounts
func unescapeOctal(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]) && isOctal(s[i+3]) {
			b.WriteByte((s[i+1]-'0')<<6 | (s[i+2]-'0')<<3 | (s[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}

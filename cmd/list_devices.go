package cmd

import (
	"bytes"
	"fmt"

	"github.com/BouncingElf10/raytracer/renderer"
	"github.com/BouncingElf10/raytracer/tracer/compute/device"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List the devices that can be selected with the --device flag.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	host, err := device.Host()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Device", "Tracers", "Workers", "Speed"})
	table.Append([]string{renderer.DeviceCPU, "cpu-0", "1", "1"})
	table.Append([]string{renderer.DeviceCompute, "compute-0", fmt.Sprint(host.LogicalCores), fmt.Sprint(host.LogicalCores)})
	table.Append([]string{renderer.DeviceHybrid, "compute-0, cpu-0", fmt.Sprint(host.LogicalCores + 1), fmt.Sprint(host.LogicalCores + 1)})
	table.Render()

	logger.Noticef(
		"host: %s @ %.0f MHz, %d cores (%d logical), %s memory (%s available)\n%s",
		host.Model, host.MHz, host.Cores, host.LogicalCores,
		fmtBytes(host.TotalMemory), fmtBytes(host.AvailableMemory),
		buf.String(),
	)
	return nil
}

func fmtBytes(size uint64) string {
	switch {
	case size >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(size)/(1<<30))
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(size)/(1<<20))
	}
	return fmt.Sprintf("%d bytes", size)
}

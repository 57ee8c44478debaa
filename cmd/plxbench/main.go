// Command plxbench reports backend capabilities and measures dispatch
// and deep-copy throughput.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/parallax-hpc/parallax"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "plxbench",
		Short: "Inspect and benchmark the parallax runtime",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML tuning file")

	root.AddCommand(infoCmd(), benchCmd(), copyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print backend limits, CPU features and space statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			lim := parallax.Limits()
			fmt.Printf("Backend limits:\n")
			fmt.Printf("  concurrency:      %d\n", lim.Concurrency)
			fmt.Printf("  max team size:    %d\n", lim.MaxTeamSize)
			fmt.Printf("  scratch per team: %d bytes\n", lim.ScratchPerTeam)

			f := parallax.Features()
			fmt.Printf("CPU features:\n")
			fmt.Printf("  SSE4: %v  AVX: %v  AVX2: %v  AVX512F: %v  FMA: %v  NEON: %v\n",
				f.HasSSE4, f.HasAVX, f.HasAVX2, f.HasAVX512F, f.HasFMA, f.HasNEON)
			fmt.Printf("  vector width: %d lanes\n", parallax.VectorWidth())

			for _, s := range []*parallax.MemorySpace{parallax.Host, parallax.Device, parallax.Scratch} {
				st := s.Stats()
				fmt.Printf("Space %-8s live %d bytes, peak %d bytes\n", s.Name(), st.Allocated, st.Peak)
			}
			return nil
		},
	}
}

func benchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Measure flat and hierarchical dispatch throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadTuning(configPath)
			if err != nil {
				return err
			}

			v, err := parallax.NewView[float64]("bench", cfg.Elements)
			if err != nil {
				return err
			}
			defer v.Release()
			data := v.Data()

			pol, err := parallax.NewRangePolicy(0, cfg.Elements)
			if err != nil {
				return err
			}
			pol = pol.WithChunkSize(cfg.ChunkSize)

			start := time.Now()
			for it := 0; it < cfg.Iterations; it++ {
				if err := parallax.ParallelFor(pol, func(i int) {
					data[i] = float64(i) * 1.0000001
				}); err != nil {
					return err
				}
			}
			elapsed := time.Since(start)
			report("range dispatch", cfg.Elements*cfg.Iterations, 8, elapsed)

			tp, err := parallax.NewTeamPolicy(cfg.LeagueSize, cfg.TeamSize)
			if err != nil {
				return err
			}
			perTeam := cfg.Elements / cfg.LeagueSize
			start = time.Now()
			for it := 0; it < cfg.Iterations; it++ {
				if err := parallax.ParallelForTeams(tp, func(tm *parallax.TeamMember) {
					base := tm.LeagueRank() * perTeam
					tm.TeamThreadRange(perTeam, func(i int) {
						data[base+i] = float64(i)
					})
				}); err != nil {
					return err
				}
			}
			elapsed = time.Since(start)
			report("team dispatch", cfg.Elements*cfg.Iterations, 8, elapsed)
			return nil
		},
	}
}

func copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy",
		Short: "Measure deep-copy throughput between memory spaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadTuning(configPath)
			if err != nil {
				return err
			}

			h, err := parallax.NewView[float64]("h", cfg.Elements)
			if err != nil {
				return err
			}
			defer h.Release()
			d, err := parallax.NewViewIn[float64](parallax.Device, parallax.LayoutRight, "d", cfg.Elements)
			if err != nil {
				return err
			}
			defer d.Release()

			start := time.Now()
			for it := 0; it < cfg.Iterations; it++ {
				if err := parallax.DeepCopy(d, h); err != nil {
					return err
				}
			}
			report("host->device", cfg.Elements*cfg.Iterations, 8, time.Since(start))

			start = time.Now()
			for it := 0; it < cfg.Iterations; it++ {
				if err := parallax.DeepCopy(h, d); err != nil {
					return err
				}
			}
			report("device->host", cfg.Elements*cfg.Iterations, 8, time.Since(start))
			return nil
		},
	}
}

func report(name string, elements, elemBytes int, elapsed time.Duration) {
	bytes := float64(elements * elemBytes)
	gbps := bytes / elapsed.Seconds() / 1e9
	fmt.Printf("%-14s %10d elements in %11s  %7.2f GB/s\n", name, elements, elapsed.Round(time.Microsecond), gbps)
}

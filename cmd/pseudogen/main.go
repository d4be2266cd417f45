/*
 * main.go, part of pseudogen.
 *
 *
 * Copyright 2026 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rmera/pseudogen"
	"github.com/rmera/pseudogen/config"
	"github.com/rmera/pseudogen/eos"
	"github.com/rmera/pseudogen/logs"
)

type opts struct {
	config string
	env    string
}

func main() {
	var o opts
	root := &cobra.Command{
		Use:   "pseudogen",
		Short: "Pseudopotential radii optimization against a reference equation of state",
		Long: `pseudogen generates norm-conserving pseudopotentials with ATOM, runs SIESTA bulk
calculations with them, fits a Birch-Murnaghan equation of state and scores it with the
Delta factor against a reference. The pseudization radii can be minimized.

The ATOM_PROGRAM, ATOM_UTILS_DIR and SIESTA_EXEC variables can be set in the environment
or in a dotenv file.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&o.config, "config", "c", "pseudogen.yaml", "configuration file")
	root.PersistentFlags().StringVar(&o.env, "env", ".env", "dotenv file with the program locations")

	root.AddCommand(
		&cobra.Command{
			Use:   "minimize [radius...]",
			Short: "Minimize the Delta factor over the free radii",
			Long: `Minimize the Delta factor over the first radii. The starting point is given
as arguments or, if none, taken from the first minimize.free configured radii.`,
			Args: cobra.MaximumNArgs(config.NRadii),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEvaluator(cmd.Context(), o, func(ctx context.Context, E *pseudogen.Evaluator, C *config.Config) error {
					x0, err := parseFloats(args)
					if err != nil {
						return err
					}
					if len(x0) == 0 {
						x0 = append([]float64(nil), C.Radii[:C.Minimize.Free]...)
					}
					res, err := E.Minimize(ctx, x0)
					if res != nil {
						fmt.Println(res)
					}
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "evaluate",
			Short: "Run one evaluation with the configured radii",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEvaluator(cmd.Context(), o, func(ctx context.Context, E *pseudogen.Evaluator, C *config.Config) error {
					ev, err := E.Evaluate(ctx, C.Radii)
					if err != nil {
						return err
					}
					fmt.Println(ev)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "check <workspace>",
			Short: "Recompute the symmetric Delta factor of a finished evaluation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEvaluator(cmd.Context(), o, func(ctx context.Context, E *pseudogen.Evaluator, C *config.Config) error {
					ev, err := E.Check(args[0])
					if err != nil {
						return err
					}
					fmt.Printf("%s %s\n", ev.Fit, ev.Delta)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "energies <workspace>",
			Short: "Fit and plot the energies of a finished evaluation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEvaluator(cmd.Context(), o, func(ctx context.Context, E *pseudogen.Evaluator, C *config.Config) error {
					ev, err := E.Energies(args[0])
					if err != nil {
						return err
					}
					fmt.Printf("%s %s\n", ev.Fit, ev.Delta)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delta <V0> <B0> <B1>",
			Short: "Delta factor of an equation of state against the reference",
			Long:  "Delta factor of an equation of state, V0 in Å^3/atom and B0 in GPa, against the reference of the configured element.",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				vals, err := parseFloats(args)
				if err != nil {
					return err
				}
				C, err := load(o)
				if err != nil {
					return err
				}
				refs, err := eos.ReadReferenceFile(C.Reference)
				if err != nil {
					return err
				}
				ref, err := refs.Get(C.Element)
				if err != nil {
					return err
				}
				d, err := eos.Delta(eos.Params{V0: vals[0], B0: vals[1], B1: vals[2]}, ref, C.Delta.Asymmetric)
				if err != nil {
					return err
				}
				fmt.Println(d)
				return nil
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func load(o opts) (*config.Config, error) {
	if err := config.LoadEnv(o.env); err != nil {
		return nil, err
	}
	return config.Load(o.config)
}

//withEvaluator loads the configuration, opens the log of the element and runs f with an
//evaluator built from them.
func withEvaluator(ctx context.Context, o opts, f func(context.Context, *pseudogen.Evaluator, *config.Config) error) error {
	C, err := load(o)
	if err != nil {
		return err
	}
	if err := C.Check(); err != nil {
		return err
	}
	level, err := logs.ParseLevel(C.LogLevel)
	if err != nil {
		return err
	}
	reg, err := logs.Open(C.Root, C.Element, level)
	if err != nil {
		return err
	}
	defer reg.Close()
	E, err := pseudogen.NewEvaluator(C, reg)
	if err != nil {
		return err
	}
	return f(ctx, E, C)
}

func parseFloats(args []string) ([]float64, error) {
	vals := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return vals, nil
}

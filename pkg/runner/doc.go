/*
Package runner implements the interactive loop that drives an Engine one turn
at a time.

Each line read from the IOHandler becomes the seed of a new run on the
configured session. Empty lines are skipped, "exit" and "quit" (any case) end
the loop, and a failed turn is reported without ending it. End of input is a
normal exit.

An interrupt (SIGINT/SIGTERM, or a signal on the interrupt source) while a
turn is running cancels that turn only; its last committed wavefront stays
resumable. An interrupt while waiting for input ends the loop.

# Usage

	r := runner.New(engine,
		runner.WithSessionID("1"),
		runner.WithSeed(research.Seed),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner

/*
Package cli provides helpers shared by the tollgate commands.

Output Formatting:

Commands accept --output text|json. Results that implement TextWriter
render their own text form:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, status)

Exit Codes:

ExitCode maps command errors to process exit codes: 2 for configuration
errors, 3 for jobs that completed with per-item failures, 1 otherwise.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli

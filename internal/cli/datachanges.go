package cli

import (
	"github.com/spf13/cobra"
)

var dataChangesCmd = &cobra.Command{
	Use:     "datachanges",
	Aliases: []string{"dcts"},
	Short:   "Inspect and run data change tasks",
}

var (
	dataChangesGetFlags struct {
		tenantFlags
		isName bool
		search bool
	}

	dataChangesRunFlags struct {
		tenantFlags
		isName        bool
		fileContainer string
	}

	dataChangesValidateFlags struct {
		tenantFlags
		isName bool
	}

	dataChangesActivityFlags struct{ tenantFlags }
)

var dataChangesGetCmd = &cobra.Command{
	Use:   "get [DCT]",
	Short: "Fetch data change tasks by id, name or substring search",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDataChangesGet,
}

var dataChangesRunCmd = &cobra.Command{
	Use:   "run DCT",
	Short: "Start an activity for a data change task",
	Args:  cobra.ExactArgs(1),
	RunE:  runDataChangesRun,
}

var dataChangesValidateCmd = &cobra.Command{
	Use:   "validate DCT",
	Short: "Check whether a data change task is runnable",
	Args:  cobra.ExactArgs(1),
	RunE:  runDataChangesValidate,
}

var dataChangesActivityCmd = &cobra.Command{
	Use:   "activity DCT ACTIVITY",
	Short: "Fetch the state of an activity run",
	Args:  cobra.ExactArgs(2),
	RunE:  runDataChangesActivity,
}

func init() {
	registerTenantFlags(dataChangesGetCmd, &dataChangesGetFlags.tenantFlags)
	dataChangesGetCmd.Flags().BoolVarP(&dataChangesGetFlags.isName, "name", "n", false, "Treat DCT as a name instead of an id")
	dataChangesGetCmd.Flags().BoolVarP(&dataChangesGetFlags.search, "search", "s", false, "Substring search on the task name")

	registerTenantFlags(dataChangesRunCmd, &dataChangesRunFlags.tenantFlags)
	dataChangesRunCmd.Flags().BoolVarP(&dataChangesRunFlags.isName, "name", "n", false, "Treat DCT as a name instead of an id")
	dataChangesRunCmd.Flags().StringVar(&dataChangesRunFlags.fileContainer, "filecontainer", "", "File container feeding the activity")

	registerTenantFlags(dataChangesValidateCmd, &dataChangesValidateFlags.tenantFlags)
	dataChangesValidateCmd.Flags().BoolVarP(&dataChangesValidateFlags.isName, "name", "n", false, "Treat DCT as a name instead of an id")

	registerTenantFlags(dataChangesActivityCmd, &dataChangesActivityFlags.tenantFlags)

	dataChangesCmd.AddCommand(dataChangesGetCmd, dataChangesRunCmd, dataChangesValidateCmd, dataChangesActivityCmd)
	rootCmd.AddCommand(dataChangesCmd)
}

func runDataChangesGet(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, dataChangesGetFlags.tenantFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	task := ""
	if len(args) == 1 {
		task = args[0]
	}

	if task != "" && !dataChangesGetFlags.isName && !dataChangesGetFlags.search {
		dc, err := svc.dataChanges.GetByID(ctx, task)
		if err != nil {
			return err
		}
		return printJSON(dc)
	}

	exact := dataChangesGetFlags.isName && !dataChangesGetFlags.search
	page := svc.dataChanges.List(ctx, task, exact)
	return printJSON(page)
}

func runDataChangesRun(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, dataChangesRunFlags.tenantFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id := args[0]
	if dataChangesRunFlags.isName {
		dc, err := svc.dataChanges.GetByName(ctx, args[0])
		if err != nil {
			return err
		}
		id = dc.ID
	}

	result, err := svc.dataChanges.Run(ctx, id, dataChangesRunFlags.fileContainer)
	if err != nil {
		return err
	}
	if result.Detail != nil {
		return printRawJSON(result.Detail)
	}
	return printJSON(result.Activity)
}

func runDataChangesValidate(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, dataChangesValidateFlags.tenantFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id := args[0]
	if dataChangesValidateFlags.isName {
		dc, err := svc.dataChanges.GetByName(ctx, args[0])
		if err != nil {
			return err
		}
		id = dc.ID
	}

	verdict, err := svc.dataChanges.Validate(ctx, id)
	if err != nil {
		return err
	}
	return printRawJSON(verdict)
}

func runDataChangesActivity(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, dataChangesActivityFlags.tenantFlags)
	if err != nil {
		return err
	}

	activity, err := svc.dataChanges.GetActivity(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	return printJSON(activity)
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/prismtools/prism/pkg/prism"
)

var fileContainersCmd = &cobra.Command{
	Use:   "filecontainers",
	Short: "Manage file containers for data change tasks",
}

var (
	fileContainersCreateFlags struct{ tenantFlags }
	fileContainersGetFlags    struct{ tenantFlags }

	fileContainersLoadFlags struct {
		tenantFlags
		id string
	}
)

var fileContainersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty file container",
	Args:  cobra.NoArgs,
	RunE:  runFileContainersCreate,
}

var fileContainersGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "List the files staged in a container",
	Args:  cobra.ExactArgs(1),
	RunE:  runFileContainersGet,
}

var fileContainersLoadCmd = &cobra.Command{
	Use:   "load FILE...",
	Short: "Stage files into a container, creating one when no id is given",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFileContainersLoad,
}

func init() {
	registerTenantFlags(fileContainersCreateCmd, &fileContainersCreateFlags.tenantFlags)
	registerTenantFlags(fileContainersGetCmd, &fileContainersGetFlags.tenantFlags)

	registerTenantFlags(fileContainersLoadCmd, &fileContainersLoadFlags.tenantFlags)
	fileContainersLoadCmd.Flags().StringVarP(&fileContainersLoadFlags.id, "id", "i", "", "Existing container id (a new container is created when empty)")

	fileContainersCmd.AddCommand(fileContainersCreateCmd, fileContainersGetCmd, fileContainersLoadCmd)
	rootCmd.AddCommand(fileContainersCmd)
}

func runFileContainersCreate(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, fileContainersCreateFlags.tenantFlags)
	if err != nil {
		return err
	}

	container, err := svc.fileContainers.Create(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(container)
}

func runFileContainersGet(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, fileContainersGetFlags.tenantFlags)
	if err != nil {
		return err
	}

	page, err := svc.fileContainers.Files(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(page)
}

func runFileContainersLoad(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, fileContainersLoadFlags.tenantFlags)
	if err != nil {
		return err
	}

	id, page, err := svc.fileContainers.Load(cmd.Context(), fileContainersLoadFlags.id, args)
	if err != nil {
		return err
	}

	out := struct {
		ID    string                          `json:"id"`
		Files prism.Page[prism.UploadReceipt] `json:"files"`
	}{ID: id, Files: page}
	return printJSON(out)
}

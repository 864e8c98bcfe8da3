package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prismtools/prism/internal/schema"
	"github.com/prismtools/prism/internal/service"
	"github.com/prismtools/prism/internal/ui"
	"github.com/prismtools/prism/pkg/prism"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Manage tables and load data into them",
}

var (
	tablesGetFlags struct {
		tenantFlags
		isName  bool
		search  bool
		format  string
		compact bool
		limit   int
		offset  int
	}

	tablesCreateFlags struct {
		tenantFlags
		name              string
		displayName       string
		enableForAnalysis bool
		sourceName        string
		sourceID          string
	}

	tablesEditFlags struct {
		tenantFlags
		id       string
		isName   bool
		truncate bool
		force    bool
	}

	tablesPatchFlags struct {
		tenantFlags
		isName            bool
		displayName       string
		description       string
		documentation     string
		enableForAnalysis bool
	}

	tablesUploadFlags struct {
		tenantFlags
		isName    bool
		operation string
	}

	tablesTruncateFlags struct {
		tenantFlags
		isName bool
		force  bool
	}
)

var tablesGetCmd = &cobra.Command{
	Use:   "get [TABLE]",
	Short: "Fetch tables by id, name or substring search",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTablesGet,
}

var tablesCreateCmd = &cobra.Command{
	Use:   "create [FILE]",
	Short: "Create a table from a schema file or an existing table",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTablesCreate,
}

var tablesEditCmd = &cobra.Command{
	Use:   "edit FILE",
	Short: "Replace the schema of an existing table",
	Args:  cobra.ExactArgs(1),
	RunE:  runTablesEdit,
}

var tablesPatchCmd = &cobra.Command{
	Use:   "patch TABLE [FILE]",
	Short: "Change table attributes without touching the schema",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTablesPatch,
}

var tablesUploadCmd = &cobra.Command{
	Use:   "upload TABLE FILE...",
	Short: "Load delimited files into a table",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTablesUpload,
}

var tablesTruncateCmd = &cobra.Command{
	Use:   "truncate TABLE",
	Short: "Delete all rows of a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runTablesTruncate,
}

func init() {
	registerTenantFlags(tablesGetCmd, &tablesGetFlags.tenantFlags)
	tablesGetCmd.Flags().BoolVarP(&tablesGetFlags.isName, "name", "n", false, "Treat TABLE as an API name instead of an id")
	tablesGetCmd.Flags().BoolVarP(&tablesGetFlags.search, "search", "s", false, "Substring search on the API name")
	tablesGetCmd.Flags().StringVarP(&tablesGetFlags.format, "type", "t", "summary", "Representation: summary, full or permissions")
	tablesGetCmd.Flags().BoolVarP(&tablesGetFlags.compact, "compact", "c", false, "Normalize schemas for write operations before printing")
	tablesGetCmd.Flags().IntVarP(&tablesGetFlags.limit, "limit", "l", 0, "Keep at most this many results (0 = all)")
	tablesGetCmd.Flags().IntVarP(&tablesGetFlags.offset, "offset", "o", 0, "Skip this many results")

	registerTenantFlags(tablesCreateCmd, &tablesCreateFlags.tenantFlags)
	tablesCreateCmd.Flags().StringVarP(&tablesCreateFlags.name, "name", "n", "", "Table API name (spaces become underscores)")
	tablesCreateCmd.Flags().StringVarP(&tablesCreateFlags.displayName, "displayName", "d", "", "Display name (defaults to the API name)")
	tablesCreateCmd.Flags().BoolVarP(&tablesCreateFlags.enableForAnalysis, "enableForAnalysis", "e", false, "Enable the table for analysis")
	tablesCreateCmd.Flags().StringVarP(&tablesCreateFlags.sourceName, "sourceName", "s", "", "Copy the schema of this table (by API name)")
	tablesCreateCmd.Flags().StringVarP(&tablesCreateFlags.sourceID, "sourceId", "w", "", "Copy the schema of this table (by id)")

	registerTenantFlags(tablesEditCmd, &tablesEditFlags.tenantFlags)
	tablesEditCmd.Flags().StringVarP(&tablesEditFlags.id, "id", "i", "", "Table id (overrides the schema's id)")
	tablesEditCmd.Flags().BoolVarP(&tablesEditFlags.isName, "name", "n", false, "Resolve the table by the schema's API name")
	tablesEditCmd.Flags().BoolVar(&tablesEditFlags.truncate, "truncate", false, "Truncate the table before replacing the schema")
	tablesEditCmd.Flags().BoolVar(&tablesEditFlags.force, "force", false, "Skip the interactive truncate confirmation")

	registerTenantFlags(tablesPatchCmd, &tablesPatchFlags.tenantFlags)
	tablesPatchCmd.Flags().BoolVarP(&tablesPatchFlags.isName, "name", "n", false, "Treat TABLE as an API name instead of an id")
	tablesPatchCmd.Flags().StringVar(&tablesPatchFlags.displayName, "displayName", "", "New display name (empty clears it)")
	tablesPatchCmd.Flags().StringVar(&tablesPatchFlags.description, "description", "", "New description (empty clears it)")
	tablesPatchCmd.Flags().StringVar(&tablesPatchFlags.documentation, "documentation", "", "New documentation (empty clears it)")
	tablesPatchCmd.Flags().BoolVar(&tablesPatchFlags.enableForAnalysis, "enableForAnalysis", false, "Enable or disable the table for analysis")

	registerTenantFlags(tablesUploadCmd, &tablesUploadFlags.tenantFlags)
	tablesUploadCmd.Flags().BoolVarP(&tablesUploadFlags.isName, "name", "n", false, "Treat TABLE as an API name instead of an id")
	tablesUploadCmd.Flags().StringVarP(&tablesUploadFlags.operation, "operation", "o", string(prism.OpTruncateAndInsert), "Write operation: Insert, Update, Upsert, Delete or TruncateAndInsert")

	registerTenantFlags(tablesTruncateCmd, &tablesTruncateFlags.tenantFlags)
	tablesTruncateCmd.Flags().BoolVarP(&tablesTruncateFlags.isName, "name", "n", false, "Treat TABLE as an API name instead of an id")
	tablesTruncateCmd.Flags().BoolVar(&tablesTruncateFlags.force, "force", false, "Skip the interactive confirmation")

	tablesCmd.AddCommand(tablesGetCmd, tablesCreateCmd, tablesEditCmd, tablesPatchCmd, tablesUploadCmd, tablesTruncateCmd)
	rootCmd.AddCommand(tablesCmd)
}

func runTablesGet(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, tablesGetFlags.tenantFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	table := ""
	if len(args) == 1 {
		table = args[0]
	}

	// A bare id fetch keeps the requested representation verbatim.
	if table != "" && !tablesGetFlags.isName && !tablesGetFlags.search {
		body, err := svc.tables.GetByID(ctx, table, tablesGetFlags.format)
		if err != nil {
			return err
		}
		return printRawJSON(body)
	}

	exact := tablesGetFlags.isName && !tablesGetFlags.search
	page := svc.tables.List(ctx, table, exact)
	if exact && len(page.Data) == 0 {
		return fmt.Errorf("table %q: %w", table, prism.ErrTableNotFound)
	}

	page = slicePage(page, tablesGetFlags.offset, tablesGetFlags.limit)

	if tablesGetFlags.compact {
		for i := range page.Data {
			compact, err := schema.Compact(&page.Data[i])
			if err != nil {
				return err
			}
			page.Data[i] = *compact
		}
	}

	return printJSON(page)
}

func runTablesCreate(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, tablesCreateFlags.tenantFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	file := ""
	if len(args) == 1 {
		file = args[0]
	}

	tableSchema, err := svc.tables.ResolveSchema(ctx, file,
		tablesCreateFlags.sourceName, tablesCreateFlags.sourceID,
		svc.dataSources.Resolver(ctx))
	if err != nil {
		return err
	}

	if tablesCreateFlags.name != "" {
		tableSchema.Name = strings.ReplaceAll(tablesCreateFlags.name, " ", "_")
	}
	if tablesCreateFlags.displayName != "" {
		tableSchema.DisplayName = tablesCreateFlags.displayName
	} else if tableSchema.DisplayName == "" {
		tableSchema.DisplayName = tableSchema.Name
	}
	if cmd.Flags().Changed("enableForAnalysis") {
		v := tablesCreateFlags.enableForAnalysis
		tableSchema.EnableForAnalysis = &v
	}

	created, err := svc.tables.Create(ctx, tableSchema)
	if err != nil {
		return err
	}
	return printJSON(created)
}

func runTablesEdit(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, tablesEditFlags.tenantFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	tableSchema, err := schema.LoadFile(args[0], svc.dataSources.Resolver(ctx))
	if err != nil {
		return err
	}
	if tableSchema.Fields == nil {
		return fmt.Errorf("schema file %q has no fields: %w", args[0], prism.ErrInvalidSchema)
	}

	id := tablesEditFlags.id
	if id == "" && tablesEditFlags.isName {
		existing, err := svc.tables.GetByName(ctx, tableSchema.Name)
		if err != nil {
			return err
		}
		id = existing.ID
	}
	if id == "" {
		id = tableSchema.ID
	}
	if id == "" {
		return fmt.Errorf("cannot resolve the table to edit, pass --id or --name: %w", prism.ErrTableNotFound)
	}

	if tablesEditFlags.truncate {
		loader := svc.newLoader(approverFor(cmd, tablesEditFlags.force))
		if _, err := loader.Truncate(ctx, service.CreateBucketInput{TargetID: id}); err != nil {
			return err
		}
	}

	updated, err := svc.tables.Update(ctx, id, tableSchema)
	if err != nil {
		return err
	}
	return printJSON(updated)
}

func runTablesPatch(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, tablesPatchFlags.tenantFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id := args[0]
	if tablesPatchFlags.isName {
		existing, err := svc.tables.GetByName(ctx, args[0])
		if err != nil {
			return err
		}
		id = existing.ID
	}

	var patch prism.TablePatch
	if len(args) == 2 {
		patch, err = loadPatchFile(args[1])
		if err != nil {
			return err
		}
	} else {
		if cmd.Flags().Changed("displayName") {
			patch.DisplayName = &tablesPatchFlags.displayName
		}
		if cmd.Flags().Changed("description") {
			patch.Description = &tablesPatchFlags.description
		}
		if cmd.Flags().Changed("documentation") {
			patch.Documentation = &tablesPatchFlags.documentation
		}
		if cmd.Flags().Changed("enableForAnalysis") {
			patch.EnableForAnalysis = &tablesPatchFlags.enableForAnalysis
		}
	}

	patched, err := svc.tables.Patch(ctx, id, patch)
	if err != nil {
		return err
	}
	return printJSON(patched)
}

func runTablesUpload(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, tablesUploadFlags.tenantFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	target := service.CreateBucketInput{
		Operation: prism.Operation(tablesUploadFlags.operation),
	}
	if tablesUploadFlags.isName {
		target.TargetName = args[0]
	} else {
		target.TargetID = args[0]
	}

	loader := svc.newLoader(ui.NewForcedApprover(svc.cfg.Verbose))
	result, err := loader.Load(ctx, service.LoadInput{Bucket: target, Files: args[1:]})
	if err != nil {
		return err
	}
	return printLoadResult(result)
}

func runTablesTruncate(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, tablesTruncateFlags.tenantFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	target := service.CreateBucketInput{}
	if tablesTruncateFlags.isName {
		target.TargetName = args[0]
	} else {
		target.TargetID = args[0]
	}

	loader := svc.newLoader(approverFor(cmd, tablesTruncateFlags.force))
	result, err := loader.Truncate(ctx, target)
	if err != nil {
		return err
	}
	return printLoadResult(result)
}

// approverFor picks the approver implied by the force flag.
func approverFor(cmd *cobra.Command, force bool) prism.Approver {
	if force {
		return ui.NewForcedApprover(getVerboseFlag(cmd))
	}
	return ui.NewInteractiveApprover(getVerboseFlag(cmd))
}

// loadPatchFile reads a patch document, rejecting attributes that cannot
// be patched.
func loadPatchFile(path string) (prism.TablePatch, error) {
	var patch prism.TablePatch

	data, err := readFile(path)
	if err != nil {
		return patch, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return patch, fmt.Errorf("patch file %q is not a JSON object: %w", path, prism.ErrInvalidConfig)
	}
	for key := range raw {
		switch key {
		case "displayName", "description", "documentation", "enableForAnalysis":
		default:
			return patch, fmt.Errorf("patch file %q: attribute %q cannot be patched: %w", path, key, prism.ErrInvalidConfig)
		}
	}

	if err := json.Unmarshal(data, &patch); err != nil {
		return patch, fmt.Errorf("parsing patch file %q: %w", path, prism.ErrInvalidConfig)
	}
	return patch, nil
}

// printLoadResult prints the load outcome: the completed bucket on
// success, or the validation detail the service answered with.
func printLoadResult(result *prism.LoadResult) error {
	if result.Complete != nil && result.Complete.Detail != nil {
		return printRawJSON(result.Complete.Detail)
	}
	if result.Complete != nil && result.Complete.Bucket != nil {
		result.Bucket = result.Complete.Bucket
	}
	return printJSON(result)
}

// slicePage applies client-side offset and limit to a page.
func slicePage[T any](page prism.Page[T], offset, limit int) prism.Page[T] {
	if offset > 0 {
		if offset >= len(page.Data) {
			page.Data = []T{}
		} else {
			page.Data = page.Data[offset:]
		}
	}
	if limit > 0 && limit < len(page.Data) {
		page.Data = page.Data[:limit]
	}
	page.Total = len(page.Data)
	return page
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prismtools/prism/internal/schema"
	"github.com/prismtools/prism/internal/service"
	"github.com/prismtools/prism/pkg/prism"
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Manage staging buckets",
}

var (
	bucketsGetFlags struct {
		tenantFlags
		isName    bool
		search    bool
		tableID   string
		tableName string
	}

	bucketsCreateFlags struct {
		tenantFlags
		name       string
		targetID   string
		targetName string
		schemaFile string
		operation  string
	}

	bucketsCompleteFlags  struct{ tenantFlags }
	bucketsFilesFlags     struct{ tenantFlags }
	bucketsErrorFileFlags struct{ tenantFlags }
)

var bucketsGetCmd = &cobra.Command{
	Use:   "get [BUCKET]",
	Short: "Fetch buckets by id, name, search or target table",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBucketsGet,
}

var bucketsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty bucket against a target table",
	Args:  cobra.NoArgs,
	RunE:  runBucketsCreate,
}

var bucketsCompleteCmd = &cobra.Command{
	Use:   "complete BUCKET",
	Short: "Commit the staged files of a bucket into its target table",
	Args:  cobra.ExactArgs(1),
	RunE:  runBucketsComplete,
}

var bucketsFilesCmd = &cobra.Command{
	Use:   "files BUCKET FILE...",
	Short: "Stage delimited files into a bucket",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runBucketsFiles,
}

var bucketsErrorFileCmd = &cobra.Command{
	Use:   "errorfile BUCKET",
	Short: "Fetch the row-level error report of a processed bucket",
	Args:  cobra.ExactArgs(1),
	RunE:  runBucketsErrorFile,
}

func init() {
	registerTenantFlags(bucketsGetCmd, &bucketsGetFlags.tenantFlags)
	bucketsGetCmd.Flags().BoolVarP(&bucketsGetFlags.isName, "name", "n", false, "Treat BUCKET as a name instead of an id")
	bucketsGetCmd.Flags().BoolVarP(&bucketsGetFlags.search, "search", "s", false, "Substring search on the bucket name")
	bucketsGetCmd.Flags().StringVar(&bucketsGetFlags.tableID, "table-id", "", "Only buckets targeting this table id")
	bucketsGetCmd.Flags().StringVar(&bucketsGetFlags.tableName, "table-name", "", "Only buckets targeting this table name")

	registerTenantFlags(bucketsCreateCmd, &bucketsCreateFlags.tenantFlags)
	bucketsCreateCmd.Flags().StringVarP(&bucketsCreateFlags.name, "name", "n", "", "Bucket name (generated when empty)")
	bucketsCreateCmd.Flags().StringVar(&bucketsCreateFlags.targetID, "target-id", "", "Target table id")
	bucketsCreateCmd.Flags().StringVar(&bucketsCreateFlags.targetName, "target-name", "", "Target table API name")
	bucketsCreateCmd.Flags().StringVar(&bucketsCreateFlags.schemaFile, "schema", "", "Schema file describing the files to be uploaded")
	bucketsCreateCmd.Flags().StringVarP(&bucketsCreateFlags.operation, "operation", "o", string(prism.OpTruncateAndInsert), "Write operation: Insert, Update, Upsert, Delete or TruncateAndInsert")

	registerTenantFlags(bucketsCompleteCmd, &bucketsCompleteFlags.tenantFlags)
	registerTenantFlags(bucketsFilesCmd, &bucketsFilesFlags.tenantFlags)
	registerTenantFlags(bucketsErrorFileCmd, &bucketsErrorFileFlags.tenantFlags)

	bucketsCmd.AddCommand(bucketsGetCmd, bucketsCreateCmd, bucketsCompleteCmd, bucketsFilesCmd, bucketsErrorFileCmd)
	rootCmd.AddCommand(bucketsCmd)
}

func runBucketsGet(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, bucketsGetFlags.tenantFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	bucket := ""
	if len(args) == 1 {
		bucket = args[0]
	}

	if bucket != "" && !bucketsGetFlags.isName && !bucketsGetFlags.search {
		found, err := svc.buckets.GetByID(ctx, bucket)
		if err != nil {
			return err
		}
		return printJSON(found)
	}

	input := service.ListBucketsInput{
		Name:      bucket,
		Exact:     bucketsGetFlags.isName && !bucketsGetFlags.search,
		TableID:   bucketsGetFlags.tableID,
		TableName: bucketsGetFlags.tableName,
	}
	page := svc.buckets.List(ctx, input)
	if input.Exact && len(page.Data) == 0 {
		return fmt.Errorf("bucket %q: %w", bucket, prism.ErrNotFound)
	}
	return printJSON(page)
}

func runBucketsCreate(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, bucketsCreateFlags.tenantFlags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	input := service.CreateBucketInput{
		Name:       bucketsCreateFlags.name,
		TargetID:   bucketsCreateFlags.targetID,
		TargetName: bucketsCreateFlags.targetName,
		Operation:  prism.Operation(bucketsCreateFlags.operation),
	}

	if bucketsCreateFlags.schemaFile != "" {
		input.Schema, err = schema.LoadFile(bucketsCreateFlags.schemaFile, svc.dataSources.Resolver(ctx))
		if err != nil {
			return err
		}
	}

	bucket, err := svc.buckets.Create(ctx, input)
	if err != nil {
		return err
	}
	return printJSON(bucket)
}

func runBucketsComplete(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, bucketsCompleteFlags.tenantFlags)
	if err != nil {
		return err
	}

	result, err := svc.buckets.Complete(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if result.Detail != nil {
		return printRawJSON(result.Detail)
	}
	return printJSON(result.Bucket)
}

func runBucketsFiles(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, bucketsFilesFlags.tenantFlags)
	if err != nil {
		return err
	}

	page, err := svc.stager.UploadToBucket(cmd.Context(), args[0], args[1:])
	if err != nil {
		return err
	}
	return printJSON(page)
}

func runBucketsErrorFile(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd, bucketsErrorFileFlags.tenantFlags)
	if err != nil {
		return err
	}

	report, err := svc.buckets.ErrorFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	// The report is CSV text, not JSON.
	_, err = os.Stdout.Write(report)
	return err
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/s0up4200/aitl/aitl"
)

var (
	// Shared by the get, create and delete commands
	resourceName string

	// Test selection flags shared by create-template and create-job
	vmSize         string
	testPriorities []int
	testCases      []string
	location       string
	regions        []string
	concurrency    int
)

var defaultRegions = []string{"westeurope"}

// addSelectionFlags registers the test selection flags on cmd
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&vmSize, "vm-size", "s", "", "VM size")
	cmd.Flags().IntSliceVarP(&testPriorities, "test-priority", "p", nil, "test priority to run (repeatable)")
	cmd.Flags().StringSliceVarP(&testCases, "test-case", "c", nil, "test case to run (repeatable)")
	cmd.Flags().StringVarP(&location, "location", "l", aitl.DefaultLocation, "location of the resource")
	cmd.Flags().StringSliceVarP(&regions, "region", "r", defaultRegions, "region to run the tests in (repeatable)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of test cases run in parallel (0-4)")
}

func testSelection() aitl.TestSelection {
	return aitl.TestSelection{
		TestPriorities: testPriorities,
		TestCases:      testCases,
		Regions:        regions,
		VMSize:         vmSize,
		Concurrency:    concurrency,
	}
}

// listTemplatesCmd represents the list-templates command
var listTemplatesCmd = &cobra.Command{
	Use:     "list-templates",
	Short:   "List job templates",
	Args:    cobra.NoArgs,
	PreRunE: connect,
	RunE:    runListTemplates,
}

func runListTemplates(cmd *cobra.Command, args []string) error {
	templates, err := aitl.Collect(client.ListTemplates(cmd.Context()))
	if err != nil {
		return err
	}

	logger.Info().Int("count", len(templates)).Msg("Listed templates")
	return newPrinter(cmd.OutOrStdout(), cfg.Output.Format).templates(templates)
}

// getTemplateCmd represents the get-template command
var getTemplateCmd = &cobra.Command{
	Use:     "get-template",
	Short:   "Show a job template",
	Args:    cobra.NoArgs,
	PreRunE: connect,
	RunE:    runGetTemplate,
}

func init() {
	getTemplateCmd.Flags().StringVarP(&resourceName, "name", "n", "", "job template name")
	_ = getTemplateCmd.MarkFlagRequired("name")
}

func runGetTemplate(cmd *cobra.Command, args []string) error {
	template, err := client.GetTemplate(cmd.Context(), resourceName)
	if err != nil {
		return err
	}
	return newPrinter(cmd.OutOrStdout(), cfg.Output.Format).template(template)
}

// createTemplateCmd represents the create-template command
var createTemplateCmd = &cobra.Command{
	Use:   "create-template",
	Short: "Create or replace a job template",
	Long: `Create or replace a job template. Without --test-priority or --test-case
the service runs only the p0 (smoke) tests.`,
	Args:    cobra.NoArgs,
	PreRunE: connect,
	RunE:    runCreateTemplate,
}

func init() {
	createTemplateCmd.Flags().StringVarP(&resourceName, "name", "n", "", "job template name")
	_ = createTemplateCmd.MarkFlagRequired("name")
	addSelectionFlags(createTemplateCmd)
}

func runCreateTemplate(cmd *cobra.Command, args []string) error {
	template, err := client.CreateTemplate(cmd.Context(), aitl.CreateTemplate{
		Name:          resourceName,
		Location:      location,
		TestSelection: testSelection(),
	})
	if err != nil {
		return err
	}

	logger.Info().Str("template", template.Name).Msg("Template created")
	return newPrinter(cmd.OutOrStdout(), cfg.Output.Format).template(template)
}

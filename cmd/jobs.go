package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/aitl/aitl"
	"github.com/s0up4200/aitl/filter"
)

var (
	// list-jobs flags
	filterExpr  string
	preset      string
	odataFilter string
	top         int

	// wait flags
	wait         bool
	waitInterval time.Duration

	// create-job flags
	marketplaceImageURN string
	vhdSASURL           string
	architecture        string
	vmGeneration        int
	jobTemplateName     string
)

// listJobsCmd represents the list-jobs command
var listJobsCmd = &cobra.Command{
	Use:     "list-jobs",
	Aliases: []string{"list"},
	Short:   "List test jobs",
	Long: `List test jobs in the resource group.

--odata-filter is sent to the service. --filter (or --preset) is an expression
evaluated locally against every job, for example:

  aitl list-jobs --filter 'Status == "failed" and daysSince(CreatedAt) < 7'
  aitl list-jobs --filter 'hasTag("team", "images") and not Terminal'`,
	Args:    cobra.NoArgs,
	PreRunE: connect,
	RunE:    runListJobs,
}

func init() {
	listJobsCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression evaluated on each job")
	listJobsCmd.Flags().StringVar(&preset, "preset", "", "use a preset filter from config")
	listJobsCmd.Flags().StringVar(&odataFilter, "odata-filter", "", "OData $filter passed to the service")
	listJobsCmd.Flags().IntVar(&top, "top", 0, "page size requested from the service")
}

func runListJobs(cmd *cobra.Command, args []string) error {
	expression, err := getFilterExpression()
	if err != nil {
		return aitl.NewValidationError("list-jobs", err)
	}

	seq := client.ListJobs(cmd.Context(), aitl.ListJobs{Filter: odataFilter, Top: top})
	if expression != "" {
		f, err := filter.Compile(expression)
		if err != nil {
			return aitl.NewValidationError("list-jobs", fmt.Errorf("invalid filter expression: %w", err))
		}
		logger.Info().Str("filter", f.Expression()).Msg("Filtering jobs")
		seq = filter.Apply(seq, f)
	}

	jobs, err := aitl.Collect(seq)
	if err != nil {
		var evalErr *filter.EvaluationError
		if errors.As(err, &evalErr) {
			return aitl.NewValidationError("list-jobs", err)
		}
		return err
	}

	logger.Info().Int("count", len(jobs)).Msg("Listed jobs")
	return newPrinter(cmd.OutOrStdout(), cfg.Output.Format).jobs(jobs)
}

// getFilterExpression determines the filter expression to use
func getFilterExpression() (string, error) {
	// Priority: command line filter > preset > none
	if filterExpr != "" {
		return filterExpr, nil
	}

	if preset != "" {
		if expression, ok := cfg.Filter.Presets[preset]; ok {
			return expression, nil
		}
		return "", fmt.Errorf("preset '%s' not found in config", preset)
	}

	return "", nil
}

// getJobCmd represents the get-job command
var getJobCmd = &cobra.Command{
	Use:     "get-job [name...]",
	Aliases: []string{"get"},
	Short:   "Show one or more test jobs",
	Long: `Show test jobs by name. Several names are fetched concurrently and printed
in the order given. With --wait the job is polled until it passes, fails or errors.`,
	Args:    cobra.ArbitraryArgs,
	PreRunE: connect,
	RunE:    runGetJob,
}

func init() {
	getJobCmd.Flags().StringVarP(&resourceName, "name", "n", "", "job name")
	getJobCmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for the job to finish")
	getJobCmd.Flags().DurationVar(&waitInterval, "interval", aitl.DefaultWaitInterval, "polling interval used with --wait")
}

func runGetJob(cmd *cobra.Command, args []string) error {
	names := args
	if resourceName != "" {
		names = append([]string{resourceName}, args...)
	}
	if len(names) == 0 {
		return aitl.NewValidationError("get-job", aitl.ErrMissingName)
	}

	p := newPrinter(cmd.OutOrStdout(), cfg.Output.Format)

	if wait {
		if len(names) > 1 {
			return aitl.NewValidationError("get-job", errors.New("--wait accepts a single job name"))
		}
		job, err := client.WaitJob(cmd.Context(), names[0], waitInterval)
		if err != nil {
			return err
		}
		return p.job(job)
	}

	if len(names) == 1 {
		job, err := client.GetJob(cmd.Context(), names[0])
		if err != nil {
			return err
		}
		return p.job(job)
	}

	jobs, err := client.GetJobs(cmd.Context(), names)
	if err != nil {
		return err
	}
	return p.jobs(jobs)
}

// deleteJobCmd represents the delete-job command
var deleteJobCmd = &cobra.Command{
	Use:     "delete-job",
	Short:   "Delete a test job",
	Args:    cobra.NoArgs,
	PreRunE: connect,
	RunE:    runDeleteJob,
}

func init() {
	deleteJobCmd.Flags().StringVarP(&resourceName, "name", "n", "", "job name")
	_ = deleteJobCmd.MarkFlagRequired("name")
}

func runDeleteJob(cmd *cobra.Command, args []string) error {
	if err := client.DeleteJob(cmd.Context(), resourceName); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", resourceName)
	return nil
}

// createJobCmd represents the create-job command
var createJobCmd = &cobra.Command{
	Use:     "create-job",
	Aliases: []string{"submit"},
	Short:   "Submit a test job",
	Long: `Submit a test job for a marketplace image or a VHD. Exactly one of
--marketplace-image-urn and --vhd-sas-url must be given.

Submission is sent once and never retried, since a repeated request could
start the tests twice.`,
	Args:    cobra.NoArgs,
	PreRunE: connect,
	RunE:    runCreateJob,
}

func init() {
	createJobCmd.Flags().StringVarP(&resourceName, "name", "n", "", "job name")
	_ = createJobCmd.MarkFlagRequired("name")
	createJobCmd.Flags().StringVarP(&marketplaceImageURN, "marketplace-image-urn", "u", "", "marketplace image URN (publisher:offer:sku:version)")
	createJobCmd.Flags().StringVarP(&vhdSASURL, "vhd-sas-url", "v", "", "SAS URL of a VHD to test")
	createJobCmd.Flags().StringVarP(&architecture, "architecture", "a", "", "architecture of the image (x64 or arm64)")
	createJobCmd.Flags().IntVar(&vmGeneration, "vm-generation", 2, "Hyper-V generation of the image (1 or 2)")
	createJobCmd.Flags().StringVarP(&jobTemplateName, "template-name", "t", "", "job template to run")
	createJobCmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for the job to finish")
	createJobCmd.Flags().DurationVar(&waitInterval, "interval", aitl.DefaultWaitInterval, "polling interval used with --wait")
	addSelectionFlags(createJobCmd)
}

func runCreateJob(cmd *cobra.Command, args []string) error {
	job, err := client.CreateJob(cmd.Context(), aitl.CreateJob{
		Name:         resourceName,
		TemplateName: jobTemplateName,
		Location:     location,
		Image: aitl.ImageSource{
			MarketplaceURN: marketplaceImageURN,
			VHDSASURL:      vhdSASURL,
			Architecture:   architecture,
			VMGeneration:   vmGeneration,
		},
		TestSelection: testSelection(),
	})
	if err != nil {
		return err
	}

	logger.Info().Str("job", job.Name).Str("status", string(job.Status)).Msg("Job submitted")

	if wait {
		job, err = client.WaitJob(cmd.Context(), resourceName, waitInterval)
		if err != nil {
			return err
		}
	}

	return newPrinter(cmd.OutOrStdout(), cfg.Output.Format).job(job)
}

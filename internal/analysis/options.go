package analysis

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"protofuzz/internal/findings"
	"protofuzz/internal/report"
	"protofuzz/internal/types"
)

// ErrUsage is returned by ParseArgs after the usage text has been printed.
var ErrUsage = errors.New("invalid command line")

type Options struct {
	Mode       string `long:"mode" choice:"first" choice:"every" default:"first" description:"result codes counted per crash file"`
	Format     string `long:"format" choice:"text" choice:"json" default:"text" description:"summary output format"`
	Instances  bool   `long:"instances" description:"treat each findings dir as an AFL++ output dir with one sub-directory per instance"`
	SkipReadme bool   `long:"skip-readme" description:"do not count the README.txt AFL drops into crashes/"`
	Campaigns  string `long:"campaigns" value-name:"FILE" description:"YAML file listing the campaigns to analyze, replaces the positional directories"`
	Archive    string `long:"archive" value-name:"DIR" description:"copy every crash input into a content-addressed archive"`
	Publish    bool   `long:"publish" description:"push summaries to the configured database, redis and rabbitmq"`
	Watch      bool   `long:"watch" description:"keep running and re-analyze a campaign whenever its findings change"`

	campaigns []types.Campaign
}

// CampaignList returns the campaigns to analyze, in report order.
func (o *Options) CampaignList() []types.Campaign {
	return o.campaigns
}

func (o *Options) HistogramMode() findings.HistogramMode {
	mode, _ := findings.ParseHistogramMode(o.Mode)
	return mode
}

func (o *Options) ReportFormat() report.Format {
	format, err := report.ParseFormat(o.Format)
	if err != nil {
		return report.Text
	}
	return format
}

func (o *Options) ScannerOptions() []findings.Option {
	opts := []findings.Option{findings.WithHistogramMode(o.HistogramMode())}
	if o.SkipReadme {
		opts = append(opts, findings.WithEntryFilter(findings.SkipAFLReadme))
	}
	return opts
}

// ParseArgs parses os.Args style arguments. On any command line problem the
// usage is written to stderr and ErrUsage is returned; no directory is touched
// except the campaigns file.
func ParseArgs(args []string, stderr io.Writer) (*Options, error) {
	prog := "analysis"
	if len(args) > 0 {
		prog = filepath.Base(args[0])
		args = args[1:]
	}
	usage := fmt.Sprintf("Usage: %s <redis_findings_dir> <http_findings_dir>\n", prog)

	opts := &Options{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = prog
	parser.Usage = "[OPTIONS] <redis_findings_dir> <http_findings_dir>"

	rest, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stderr, flagsErr.Message)
			return nil, ErrUsage
		}
		fmt.Fprintln(stderr, err)
		fmt.Fprint(stderr, usage)
		return nil, ErrUsage
	}

	if opts.Campaigns != "" {
		campaigns, err := LoadCampaigns(opts.Campaigns)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return nil, ErrUsage
		}
		opts.campaigns = campaigns
		return opts, nil
	}

	if len(rest) < 2 {
		fmt.Fprint(stderr, usage)
		return nil, ErrUsage
	}
	opts.campaigns = []types.Campaign{
		{Name: types.RedisCampaignName, FindingsDir: rest[0]},
		{Name: types.HTTPCampaignName, FindingsDir: rest[1]},
	}
	return opts, nil
}

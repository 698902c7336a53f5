package digestsvc

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/school"
	"github.com/trezcool/attendance/services/report"
)

const runTimeout = 10 * time.Minute

// Digest emails every school's admins a daily summary of absences and the class ranking.
type Digest struct {
	schoolSvc *school.Service
	attSvc    *attendance.Service
	mailSvc   core.EmailService
	logger    core.Logger
	cron      *cron.Cron
}

func New(schoolSvc *school.Service, attSvc *attendance.Service, mailSvc core.EmailService, logger core.Logger, loc *time.Location) *Digest {
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{logger}
	return &Digest{
		schoolSvc: schoolSvc,
		attSvc:    attSvc,
		mailSvc:   mailSvc,
		logger:    logger,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start schedules the digest with a standard 5-field cron spec.
func (d *Digest) Start(spec string) error {
	_, err := d.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := d.Run(ctx); err != nil {
			d.logger.Error("running digest", err)
		}
	})
	if err != nil {
		return errors.Wrap(err, "scheduling digest")
	}
	d.cron.Start()
	return nil
}

// Stop unschedules the digest; the returned context is done once a running digest finishes.
func (d *Digest) Stop() context.Context {
	return d.cron.Stop()
}

// Run sends today's digest to the admins of every school and returns the number of emails sent.
// A school whose digest fails is logged and skipped.
func (d *Digest) Run(ctx context.Context) (int, error) {
	schools, err := d.schoolSvc.QuerySchools(ctx, school.SchoolFilter{})
	if err != nil {
		return 0, errors.Wrap(err, "querying schools")
	}

	today := d.attSvc.Today()
	var sent, failed int
	for _, sch := range schools {
		admins, err := d.schoolSvc.QueryAdmins(ctx, sch.ID)
		if err != nil {
			d.logger.Error(fmt.Sprintf("digest of %s: querying admins", sch.ID), err)
			failed++
			continue
		}
		if len(admins) == 0 {
			continue
		}
		msg, err := d.message(ctx, sch, today)
		if err != nil {
			d.logger.Error(fmt.Sprintf("digest of %s: building message", sch.ID), err)
			failed++
			continue
		}
		for _, adm := range admins {
			msg.To = append(msg.To, mail.Address{Name: adm.Name, Address: adm.Email})
		}
		d.mailSvc.SendMessages(msg)
		sent++
	}
	if failed > 0 {
		return sent, errors.Errorf("digest failed for %d schools", failed)
	}
	return sent, nil
}

func (d *Digest) message(ctx context.Context, sch school.School, day time.Time) (*core.EmailMessage, error) {
	classes, err := d.schoolSvc.QueryClasses(ctx, school.ClassFilter{SchoolID: sch.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}

	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "%s: absences on %s\n\n", sch.Name, day.Format(core.DayLayout))
	for _, c := range classes {
		absent, err := d.attSvc.AbsentOn(ctx, c.ID, day)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(absent))
		for _, rec := range absent {
			st, err := d.schoolSvc.GetStudent(ctx, rec.StudentID)
			if err != nil {
				return nil, errors.Wrap(err, "finding student")
			}
			names = append(names, st.Name)
		}
		if len(names) == 0 {
			names = append(names, "none")
		}
		_, _ = fmt.Fprintf(body, "%s: %s\n", c.Name, strings.Join(names, ", "))
	}

	stats, err := d.attSvc.SchoolStats(ctx, sch)
	if err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintf(body, "\nSchool attendance: %.1f%%\n", stats.Percent)

	ranking, err := reportsvc.SchoolRanking(stats)
	if err != nil {
		return nil, err
	}
	return &core.EmailMessage{
		Subject: "daily attendance " + day.Format(core.DayLayout),
		BodyStr: body.String(),
		Attachments: []core.Attachment{{
			Filename:    "ranking-" + day.Format(core.DayLayout) + ".xlsx",
			ContentType: reportsvc.ContentType,
			Data:        ranking,
		}},
	}, nil
}

// cronLogger reports cron's own events through core.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvMap(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, err, kvMap(keysAndValues))
}

func kvMap(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		m[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return m
}

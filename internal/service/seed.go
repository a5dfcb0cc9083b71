package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"
)

const readingDays = 30

var (
	deviceTypes   = []string{"Pacemaker", "Defibrillator", "Neurostimulator"}
	manufacturers = []string{"Medtronic", "Boston Scientific", "Abbott"}
)

type SeedOptions struct {
	Patients int
	// Seed fixes the generator; zero picks one from the clock.
	Seed uint64
	// Now anchors implant dates; zero means time.Now().
	Now time.Time
}

type SeedStats struct {
	Patients int
	Devices  int
	Readings int
	Outcomes int
}

type patient struct {
	age           int
	sex           string
	weight        float64
	height        float64
	diagnosisCode string
	risk          float64
}

type reading struct {
	heartRate     int
	bloodPressure string
	batteryLevel  int
}

type outcome struct {
	complication  bool
	replacement   bool
	readmission   bool
	timeToFailure int
}

type generator struct {
	r *rand.Rand
}

// between returns an int in [lo, hi].
func (g generator) between(lo, hi int) int {
	return lo + g.r.IntN(hi-lo+1)
}

func (g generator) uniform(lo, hi float64) float64 {
	return math.Round((lo+g.r.Float64()*(hi-lo))*100) / 100
}

func (g generator) pick(choices []string) string {
	return choices[g.r.IntN(len(choices))]
}

// patient draws demographics; risk rises with age over 65, male sex and a
// BMI over 30.
func (g generator) patient() patient {
	p := patient{
		age:           g.between(20, 90),
		sex:           "Female",
		height:        g.uniform(150, 200),
		weight:        g.uniform(50, 120),
		diagnosisCode: fmt.Sprintf("D%d", g.between(100, 999)),
	}
	if g.r.Float64() < 0.48 {
		p.sex = "Male"
	}

	if p.age > 65 {
		p.risk += 1.5
	}
	if p.sex == "Male" {
		p.risk += 0.5
	}
	if bmi := p.weight / math.Pow(p.height/100, 2); bmi > 30 {
		p.risk += 1
	}
	return p
}

// reading is one daily sample; heart rate drifts up with risk over the days
// and the battery drains a point per day.
func (g generator) reading(risk float64, day int) reading {
	heartRate := min(g.between(60, 80)+int(risk*5), 130)
	systolic := min(g.between(110, 120)+int(risk*5), 180)
	diastolic := min(g.between(70, 80)+int(risk*3), 120)
	battery := g.between(50, 100)

	return reading{
		heartRate:     heartRate + int(float64(day)*0.2*risk),
		bloodPressure: fmt.Sprintf("%d/%d", systolic, diastolic),
		batteryLevel:  max(battery-day, 0),
	}
}

func (g generator) outcome(deviceType string, risk float64) outcome {
	p := 0.02
	switch deviceType {
	case "Pacemaker":
		p += 0.05
	case "Defibrillator":
		p += 0.03
	}
	p += 0.1 * risk

	o := outcome{complication: g.r.Float64() < p}
	o.replacement = o.complication && g.r.Float64() < 0.6
	o.readmission = o.complication && g.r.Float64() < 0.4
	if o.complication {
		o.timeToFailure = g.between(30, 1000)
	} else {
		o.timeToFailure = g.between(1000, 2000)
	}
	return o
}

// Seed fills the schema created by InitSchema with correlated synthetic data:
// 1-3 devices per patient, 30 days of readings and one outcome per device.
func (p *SQLClient) Seed(ctx context.Context, opts SeedOptions) (SeedStats, error) {
	var stats SeedStats
	if p.db == nil {
		return stats, ErrNotConnected
	}
	if _, ok := serialTypes[p.driver]; !ok {
		return stats, errors.Errorf("seeding is not supported for driver %q", p.driver)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	earliest := today.AddDate(-5, 0, 0)
	span := int(today.Sub(earliest).Hours() / 24)

	g := generator{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, errors.Wrap(err, "seed: begin")
	}
	defer tx.Rollback()

	for i := 0; i < opts.Patients; i++ {
		pt := g.patient()
		var patientID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO patients (age, sex, weight, height, diagnosis_code)
			 VALUES ($1, $2, $3, $4, $5) RETURNING patient_id`,
			pt.age, pt.sex, pt.weight, pt.height, pt.diagnosisCode).Scan(&patientID)
		if err != nil {
			return stats, errors.Wrap(err, "seed: insert patient")
		}
		stats.Patients++

		for d := g.between(1, 3); d > 0; d-- {
			if err := seedDevice(ctx, tx, g, patientID, pt.risk, earliest.AddDate(0, 0, g.between(0, span)), &stats); err != nil {
				return stats, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, errors.Wrap(err, "seed: commit")
	}
	return stats, nil
}

func seedDevice(ctx context.Context, tx *sql.Tx, g generator, patientID int64, risk float64, implanted time.Time, stats *SeedStats) error {
	deviceType := g.pick(deviceTypes)

	var deviceID int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO devices (patient_id, device_type, implant_date, manufacturer)
		 VALUES ($1, $2, $3, $4) RETURNING device_id`,
		patientID, deviceType, implanted, g.pick(manufacturers)).Scan(&deviceID)
	if err != nil {
		return errors.Wrap(err, "seed: insert device")
	}
	stats.Devices++

	for day := 0; day < readingDays; day++ {
		r := g.reading(risk, day)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO readings (device_id, timestamp, heart_rate, blood_pressure, battery_level)
			 VALUES ($1, $2, $3, $4, $5)`,
			deviceID, implanted.AddDate(0, 0, day), r.heartRate, r.bloodPressure, r.batteryLevel)
		if err != nil {
			return errors.Wrap(err, "seed: insert reading")
		}
		stats.Readings++
	}

	o := g.outcome(deviceType, risk)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO outcomes (device_id, complication_occurred, device_replacement_needed, readmission_within_30_days, time_to_failure)
		 VALUES ($1, $2, $3, $4, $5)`,
		deviceID, o.complication, o.replacement, o.readmission, o.timeToFailure)
	if err != nil {
		return errors.Wrap(err, "seed: insert outcome")
	}
	stats.Outcomes++
	return nil
}

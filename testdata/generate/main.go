package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

var header = []string{
	"Last Name", "First Name", "Member #", "Join Date", "Exp Date",
	"Type", "Pay Type", "Dues Amt", "Cycle", "Balance", "End Draft", "Sales Rep",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Rodriguez", "Martinez", "Lopez", "Wilson", "Anderson", "Taylor",
}

var firstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael",
	"Linda", "David", "Elizabeth", "Carlos", "Susan", "Daniel", "Karen",
}

var salesReps = []string{"Alice", "Bob", "Carmen", "Derek", "Elena"}

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	// Join dates: 2023-07-01 to 2024-06-30.
	startDate := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	dayRange := 365

	filePath := filepath.Join(baseDir, "members_sample.csv")
	f, err := os.Create(filePath)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write(header)

	const total = 200
	flagged := 0

	for i := 1; i <= total; i++ {
		memberID := fmt.Sprintf("M%04d", i)
		last := lastNames[rng.Intn(len(lastNames))]
		first := firstNames[rng.Intn(len(firstNames))]
		rep := salesReps[rng.Intn(len(salesReps))]

		joined := startDate.AddDate(0, 0, rng.Intn(dayRange))
		expires := joined.AddDate(1, 0, 0)

		dues := "650.00"
		payType := "ANNUAL BILL"
		cycle := "1"
		balance := "0.00"
		endDraft := "12/31/99"

		roll := rng.Float64()
		switch {
		// 5% underpriced dues.
		case roll < 0.05:
			amount := 100 + rng.Float64()*450
			dues = fmt.Sprintf("%.2f", math.Round(amount*100)/100)
			flagged++

		// 4% wrong pay type, usually paired with zeroed dues.
		case roll < 0.09:
			payType = "NO PAY"
			dues = "0.00"
			flagged++

		// 3% outstanding or credit balance.
		case roll < 0.12:
			amount := 10 + rng.Float64()*200
			if rng.Intn(2) == 0 {
				amount = -amount
			}
			balance = fmt.Sprintf("%.2f", math.Round(amount*100)/100)
			flagged++

		// 3% expiration date drift.
		case roll < 0.15:
			expires = expires.AddDate(0, 0, rng.Intn(60)+2)
			flagged++

		// 2% wrong cycle.
		case roll < 0.17:
			cycle = fmt.Sprintf("%d", rng.Intn(11)+2)
			flagged++

		// 2% wrong end draft.
		case roll < 0.19:
			endDraft = expires.Format("1/2/06")
			flagged++

		// 1% unparseable join date.
		case roll < 0.20:
			flagged++
		}

		joinDate := joined.Format("1/2/06")
		if roll >= 0.19 && roll < 0.20 {
			joinDate = "N/A"
		}

		w.Write([]string{
			last, first, memberID, joinDate, expires.Format("1/2/06"),
			"1 Year Paid In Full", payType, dues, cycle, balance, endDraft, rep,
		})
	}

	fmt.Printf("Generated %d members (%d seeded red flags) -> members_sample.csv\n", total, flagged)
}

func findTestdataDir() string {
	candidates := []string{"testdata", "."}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			if _, err := os.Stat(filepath.Join(c, "generate")); err == nil {
				return c
			}
		}
	}
	return "testdata"
}

package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	devenv "catalogdesk-backend/dev/env"
	sheetsdb "catalogdesk-backend/internal/sheets/db"

	_ "modernc.org/sqlite"
)

func createDb(filename, schema string) error {
	dbPath, err := devenv.ResolvePath(filepath.Join("<dev_state>", filename))
	if err != nil {
		return err
	}

	_, err = os.Stat(dbPath)
	if err == nil {
		fmt.Println("database already created at", dbPath)
		return nil
	}

	fmt.Println("creating database at", dbPath)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(schema)
	return err
}

// CreateJournalDB creates the export journal catalogd uses by default.
func CreateJournalDB() error {
	return createDb("catalogd.db", sheetsdb.Schema)
}

const sampleDataset = "\ufeffname,url,price,weight,calories,proteins,fats,carbohydrates,pri/we,pro/cal,availability,category,last_upd_time\n" +
	"Молоко 3.2%,https://shop.example/p/milk,89.99,930,58,3,3.2,4.7,\"9,68\",\"5,17\",12,Молочные продукты#Молоко,2024-05-01 09:30:00\n" +
	"Кефир 1%,https://shop.example/p/kefir,74.5,900,40,3,1,4,\"8,28\",\"7,5\",0,Молочные продукты#Кефир,2024-05-01 09:30:00\n" +
	"Сыр,https://shop.example/p/cheese,310,200,100500,100500,100500,100500,\"155\",\"0\",3,Молочные продукты#Сыр,2024-05-01 09:30:00\n" +
	"Вода,https://shop.example/p/water,35,1500,0,0,0,0,\"2,33\",\"0\",40,,2024-05-01 09:30:00\n"

// CreateSampleData writes a small dataset so catalogd has something to
// show right after setup.
func CreateSampleData() error {
	dir, err := devenv.ResolvePath(filepath.Join("<dev_state>", "data", "demo"))
	if err != nil {
		return err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "dairy.csv")
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("sample dataset already created at", path)
		return nil
	}
	fmt.Println("creating sample dataset at", path)
	return os.WriteFile(path, []byte(sampleDataset), 0644)
}

func PrintConfigLocations() {
	slog.Info("catalogd reads catalogd.json5 (and catalogd.local.json5) from the working directory, telemetry.json5 is looked up from the working directory upwards. Paths may start with <dev_state> to point into dev/.state.")
}

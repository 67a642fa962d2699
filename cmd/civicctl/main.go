// civicctl ist das Admin-Werkzeug: Abgleich der Vertrauenswerte,
// Status-Override, Stammdaten und Datenbank-Backups.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

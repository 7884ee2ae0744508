package paydb

import (
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// metaBucketKey stores all the meta information concerning the state
	// of the database.
	metaBucketKey = []byte("metadata")

	// dbVersionKey is a boltdb key and it's used for storing/retrieving
	// current database version.
	dbVersionKey = []byte("dbp")

	// ErrDBReversion is returned when detecting an attempt to revert to a
	// prior database version.
	ErrDBReversion = errors.New("journal cannot revert to prior version")
)

// latestDBVersion is the version of the journal layout written by this
// code.
const latestDBVersion uint32 = 1

// getDBVersion retrieves the current db version.
func getDBVersion(db *bbolt.DB) (uint32, error) {
	var version uint32

	err := db.View(func(tx *bbolt.Tx) error {
		metaBucket := tx.Bucket(metaBucketKey)
		if metaBucket == nil {
			return errors.New("bucket does not exist")
		}

		// If no version key found, assume version is 0.
		data := metaBucket.Get(dbVersionKey)
		if data != nil {
			version = byteOrder.Uint32(data)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setDBVersion updates the current db version.
func setDBVersion(tx *bbolt.Tx, version uint32) error {
	metaBucket, err := tx.CreateBucketIfNotExists(metaBucketKey)
	if err != nil {
		return fmt.Errorf("set db version: %w", err)
	}

	scratch := make([]byte, 4)
	byteOrder.PutUint32(scratch, version)

	return metaBucket.Put(dbVersionKey, scratch)
}

// checkVersion refuses to open a journal written by a newer version.
func checkVersion(db *bbolt.DB) error {
	currentVersion, err := getDBVersion(db)
	if err != nil {
		return err
	}

	log.Debugf("Journal version: latest_version=%v, db_version=%v",
		latestDBVersion, currentVersion)

	if currentVersion > latestDBVersion {
		log.Errorf("Refusing to revert from db_version=%d to "+
			"lower version=%d", currentVersion, latestDBVersion)

		return ErrDBReversion
	}

	return nil
}

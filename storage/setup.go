// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_storage "github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/bitmark-inc/assetflow/fault"
)

// for database version
var versionKey = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}

// pool access modes
const (
	ReadOnly  = true
	ReadWrite = false
)

// Database - one open LevelDB holding a set of pools
type Database struct {
	sync.RWMutex
	db *leveldb.DB
}

// Open - open or create a database file
//
// an empty database is tagged with the given version; a database with
// a newer version than expected is refused
func Open(name string, version int, readOnly bool) (*Database, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}

	db, err := leveldb.OpenFile(name, opt)
	if nil != err {
		return nil, err
	}
	return initialise(db, version, readOnly)
}

// OpenMemory - a database that lives only in memory
func OpenMemory(version int) (*Database, error) {
	db, err := leveldb.Open(ldb_storage.NewMemStorage(), nil)
	if nil != err {
		return nil, err
	}
	return initialise(db, version, ReadWrite)
}

func initialise(db *leveldb.DB, version int, readOnly bool) (*Database, error) {
	currentVersion, err := getVersion(db)
	if nil != err {
		db.Close()
		return nil, err
	}

	switch {
	case currentVersion > version:
		db.Close()
		return nil, fault.ErrIncompatibleDatabase
	case 0 == currentVersion && !readOnly:
		// database was empty so tag as current version
		if err := putVersion(db, version); nil != err {
			db.Close()
			return nil, err
		}
	case currentVersion != version:
		db.Close()
		return nil, fault.ErrIncompatibleDatabase
	}

	return &Database{db: db}, nil
}

// Close - close the database
func (d *Database) Close() {
	d.Lock()
	defer d.Unlock()
	if nil != d.db {
		d.db.Close()
		d.db = nil
	}
}

// Pools - fill in every *PoolHandle field of a struct from its prefix tag
//
// note all fields must be exported (i.e. initial capital)
func (d *Database) Pools(pools interface{}) error {
	poolValue := reflect.ValueOf(pools)
	if reflect.Ptr != poolValue.Kind() || reflect.Struct != poolValue.Elem().Kind() {
		return fault.ErrInvalidStructPointer
	}

	// get write access by using pointer + Elem()
	poolValue = poolValue.Elem()
	poolType := poolValue.Type()

	seen := make(map[byte]string)

	// scan each field
	for i := 0; i < poolType.NumField(); i += 1 {

		fieldInfo := poolType.Field(i)

		if reflect.TypeOf((*PoolHandle)(nil)) != fieldInfo.Type {
			return fmt.Errorf("pool: %s is not a *PoolHandle", fieldInfo.Name)
		}

		prefixTag := fieldInfo.Tag.Get("prefix")
		if 1 != len(prefixTag) {
			return fmt.Errorf("pool: %s has invalid prefix: %q", fieldInfo.Name, prefixTag)
		}

		prefix := prefixTag[0]
		if 0 == prefix {
			return fmt.Errorf("pool: %s uses reserved prefix", fieldInfo.Name)
		}
		if other, ok := seen[prefix]; ok {
			return fmt.Errorf("pool: %s has same prefix as: %s", fieldInfo.Name, other)
		}
		seen[prefix] = fieldInfo.Name

		limit := []byte(nil)
		if prefix < 255 {
			limit = []byte{prefix + 1}
		}

		p := &PoolHandle{
			prefix:   prefix,
			limit:    limit,
			database: d,
		}
		poolValue.Field(i).Set(reflect.ValueOf(p))
	}
	return nil
}

// return 0 for an empty database
func getVersion(db *leveldb.DB) (int, error) {
	versionValue, err := db.Get(versionKey, nil)
	if leveldb.ErrNotFound == err {
		return 0, nil
	} else if nil != err {
		return 0, err
	}

	if 4 != len(versionValue) {
		return 0, fmt.Errorf("incompatible database version length: expected: %d  actual: %d", 4, len(versionValue))
	}

	return int(binary.BigEndian.Uint32(versionValue)), nil
}

func putVersion(db *leveldb.DB, version int) error {
	currentVersion := make([]byte, 4)
	binary.BigEndian.PutUint32(currentVersion, uint32(version))

	return db.Put(versionKey, currentVersion, nil)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"erasmus-atlas/internal/shared/model"

	"github.com/google/uuid"
)

func (r *Store) citySelect() string {
	return `SELECT id, name, country_iso2, ` +
		r.dialect.PointLat("centroid") + `, ` + r.dialect.PointLng("centroid") +
		` FROM cities`
}

// ListCities 按名称排序返回城市列表
func (r *Store) ListCities(ctx context.Context, limit int) (cities []*model.City, err error) {
	defer r.track("select", "cities", time.Now(), &err)

	rows, err := r.db.QueryContext(ctx, r.rebind(r.citySelect()+` ORDER BY name ASC LIMIT $1`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cities = []*model.City{}
	for rows.Next() {
		c := &model.City{}
		if err := rows.Scan(&c.ID, &c.Name, &c.CountryISO2, &c.Lat, &c.Lng); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// GetCity 通过 ID 查找城市
func (r *Store) GetCity(ctx context.Context, id string) (city *model.City, err error) {
	defer r.track("select", "cities", time.Now(), &err)

	return scanCity(r.db.QueryRowContext(ctx, r.rebind(r.citySelect()+` WHERE id = $1`), id))
}

// FindCity 名称不区分大小写，国家代码精确匹配（统一转大写）
func (r *Store) FindCity(ctx context.Context, name, countryISO2 string) (city *model.City, err error) {
	defer r.track("select", "cities", time.Now(), &err)

	return scanCity(r.db.QueryRowContext(ctx, r.rebind(
		r.citySelect()+` WHERE LOWER(name) = LOWER($1) AND country_iso2 = $2 ORDER BY name LIMIT 1`),
		strings.TrimSpace(name), strings.ToUpper(strings.TrimSpace(countryISO2))))
}

// UpsertCity 按 (name, country_iso2) 插入或更新中心点，回填已有城市的 ID
func (r *Store) UpsertCity(ctx context.Context, city *model.City) (err error) {
	defer r.track("upsert", "cities", time.Now(), &err)

	if city.ID == "" {
		city.ID = uuid.NewString()
	}
	city.CountryISO2 = strings.ToUpper(city.CountryISO2)

	return r.db.QueryRowContext(ctx, r.rebind(
		`INSERT INTO cities (id, name, country_iso2, centroid)
		 VALUES ($1, $2, $3, `+r.dialect.MakePoint("$4", "$5")+`) `+
			r.dialect.UpsertConflict("name, country_iso2", []string{"centroid = EXCLUDED.centroid"})+
			` RETURNING id`),
		city.ID, city.Name, city.CountryISO2, city.Lng, city.Lat,
	).Scan(&city.ID)
}

func scanCity(row *sql.Row) (*model.City, error) {
	c := &model.City{}
	err := row.Scan(&c.ID, &c.Name, &c.CountryISO2, &c.Lat, &c.Lng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Package seed 城市目录与演示数据初始化
//
// 所有写入都是 upsert 或追加，城市和用户可重复执行。
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"gopkg.in/yaml.v3"

	"erasmus-atlas/internal/shared/model"
)

// Topics 前端使用的规范话题
var Topics = []string{"Food", "Nightlife", "Housing", "Academics", "Safety", "Costs", "Travel"}

// DemoPassword 演示用户的明文密码
const DemoPassword = "secret123"

// Store 种子数据写入的存储接口
type Store interface {
	UpsertCity(ctx context.Context, city *model.City) error
	UpsertUser(ctx context.Context, user *model.User) error
	CreatePost(ctx context.Context, in *model.NewPost) (*model.Post, error)
}

type cityEntry struct {
	Name        string  `yaml:"name"`
	CountryISO2 string  `yaml:"country_iso2"`
	Lat         float64 `yaml:"lat"`
	Lng         float64 `yaml:"lng"`
}

// ParseCities 解析城市 YAML 列表
func ParseCities(data []byte) ([]*model.City, error) {
	var entries []cityEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse cities: %w", err)
	}

	cities := make([]*model.City, 0, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" || len(e.CountryISO2) != 2 {
			return nil, fmt.Errorf("city #%d: name and 2-letter country_iso2 are required", i+1)
		}
		if e.Lat < -90 || e.Lat > 90 || e.Lng < -180 || e.Lng > 180 {
			return nil, fmt.Errorf("city %s: coordinates out of range", name)
		}
		cities = append(cities, &model.City{
			Name:        name,
			CountryISO2: strings.ToUpper(e.CountryISO2),
			Lat:         e.Lat,
			Lng:         e.Lng,
		})
	}
	return cities, nil
}

// Cities 写入城市目录，已存在的城市保留 ID 并更新中心点
func Cities(ctx context.Context, store Store, cities []*model.City) error {
	for _, c := range cities {
		if err := store.UpsertCity(ctx, c); err != nil {
			return fmt.Errorf("upsert city %s/%s: %w", c.Name, c.CountryISO2, err)
		}
	}
	return nil
}

var demoUsers = []struct{ name, email string }{
	{"Alice Martin", "alice@example.com"},
	{"Bob Rossi", "bob@example.com"},
	{"Clara Müller", "clara@example.com"},
	{"David Smith", "david@example.com"},
	{"Ella Lopez", "ella@example.com"},
	{"Demo User", "demo@demo.com"},
}

// DemoUsers 写入演示用户，所有用户共用 passwordHash
func DemoUsers(ctx context.Context, store Store, passwordHash string) ([]*model.User, error) {
	users := make([]*model.User, 0, len(demoUsers))
	for _, d := range demoUsers {
		u := &model.User{Name: d.name, Email: d.email, PasswordHash: &passwordHash}
		if err := store.UpsertUser(ctx, u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

var sentences = map[string][]string{
	"Food":      {"Lunch specials near campus are great value for students.", "Local bakeries open early and pastries are affordable."},
	"Nightlife": {"Student nights midweek are friendly and lively.", "Live music spots often offer student pricing."},
	"Housing":   {"Flatshares are common and usually the best value.", "Start looking a month ahead for decent options."},
	"Academics": {"Professors are approachable and helpful to exchange students.", "Group work is common and helps you meet locals."},
	"Safety":    {"The city feels safe with normal common-sense habits.", "Public transport is well-lit and monitored."},
	"Costs":     {"Student transport passes save a lot each month.", "Rent is the biggest cost, so budget around it."},
	"Travel":    {"Weekend trips by train are easy to plan.", "Flights to nearby countries are cheap if booked early."},
}

// DemoPosts 为每个城市生成 perCity 条已发布帖子
//
// 由 seed 决定的伪随机序列保证结果可复现；坐标在城市中心点附近约 2 km 内抖动。
// 帖子不做去重，重复执行会追加。
func DemoPosts(ctx context.Context, store Store, users []*model.User, cities []*model.City, perCity int, seed uint64) (int, error) {
	if len(users) == 0 || perCity <= 0 {
		return 0, nil
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	created := 0
	for _, c := range cities {
		for i := 0; i < perCity; i++ {
			topics := pickTopics(rng)
			lines := sentences[topics[0]]
			cityID := c.ID
			in := &model.NewPost{
				UserID: users[rng.IntN(len(users))].ID,
				Title:  fmt.Sprintf("%s in %s", topics[0], c.Name),
				Body:   lines[rng.IntN(len(lines))],
				Topics: topics,
				Location: &model.LatLng{
					Lat: c.Lat + (rng.Float64()-0.5)*0.04,
					Lng: c.Lng + (rng.Float64()-0.5)*0.04,
				},
				CityID: &cityID,
				Status: model.PostStatusPublished,
			}
			if _, err := store.CreatePost(ctx, in); err != nil {
				return created, fmt.Errorf("create demo post for %s: %w", c.Name, err)
			}
			created++
		}
	}
	return created, nil
}

// pickTopics 随机选 1-2 个不同话题
func pickTopics(rng *rand.Rand) []string {
	first := rng.IntN(len(Topics))
	topics := []string{Topics[first]}
	if rng.IntN(2) == 0 {
		second := (first + 1 + rng.IntN(len(Topics)-1)) % len(Topics)
		topics = append(topics, Topics[second])
	}
	return topics
}

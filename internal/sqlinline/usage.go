package sqlinline

const QInsertUsageEvent = `--sql 42f50b32-8592-44d4-9094-ccd2eefe6ce7
insert into usage_events (id, user_id, action, occurred_at)
values ($1::uuid, $2::bigint, $3::text, now());
`

const QCountUsageEvents = `--sql cb692b41-1903-4756-b2cd-e6f876db4469
select count(*)
from usage_events
where user_id = $1::bigint
  and action = $2::text
  and occurred_at >= $3::timestamptz
  and occurred_at < $4::timestamptz;
`
